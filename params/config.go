package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Roster is the fixed set of participants. The exchange is a closed economy:
// accounts exist only for these names and are created at initialization.
var Roster = []string{
	"Josh", "Jack", "Levi", "Shap", "Eitan", "Jonny", "Fisher", "Isaac",
	"Charlie", "James", "Max", "Matan", "Sam", "Noah", "Jamie", "Oliver",
}

var ChickenIndex = []string{
	"Teriyaki Chicken", "North African Chicken", "Chicken Chimichurri",
	"Chicken Tostada", "BBQ Chicken Drumsticks", "Chicken Fried Rice",
	"Chicken Dakota", "Chicken Bahn Mi Sandwich", "BBQ Chicken on White Bun",
	"Lebanese Chicken", "Herb Baked Chicken Thighs", "Roasted Chicken",
	"Italian Chicken", "Taco Chicken", "Schwarma Pita Folds", "Gyro Chicken",
}

var BeefIndex = []string{
	"Beef and Three Mushroom Goulash", "Korean Chuck Eye", "Slow Roasted Chuck Eye",
	"Beef Stew", "Beef Mostaccioli", "Sloppy Joes", "Beef Bulgogi",
	"Sloppy Joe on Pretzel Bun", "Roast Beef Chipotle on Baguette", "Beef Hot Dogs",
	"Corned Beef Sandwich", "Corned Beef", "Hamburger on Pretzel Bun",
	"Lamb Gyro", "Lamb Korma", "Lamb Meatballs w/ Green Harissa Sauce",
}

var MiscIndex = []string{
	"Turkey Chipotle on Baguette", "Turkey Dogs", "Kosher Deli",
	"Salmon Chimmichuri", "Honey Glazed Salmon", "Whitefish RAS AL HANOUT",
	"UNIT CHOICE MEAL", "Roasted Turkey Breast", "Brown Sugar Oatmeal", "Scrambled Eggs",
}

// Category groups meals for display only; it has no effect on matching.
type Category struct {
	Name  string
	Meals []string
}

// Economy holds the tunable numbers of the closed economy.
type Economy struct {
	InitialBalance     decimal.Decimal
	InitialHouseSupply int64

	// Primary issuance: the IPO price starts at IPOStartPrice and drops by
	// IPODecayStep once per IPODecayInterval, flooring at zero.
	IPOStartPrice    decimal.Decimal
	IPODecayStep     decimal.Decimal
	IPODecayInterval time.Duration
}

type Node struct {
	APIAddr string
	LogFile string

	// SnapshotPath is the Pebble directory for snapshot/restore.
	// Empty disables persistence; the engine is correct purely in memory.
	SnapshotPath     string
	SnapshotInterval time.Duration
}

type Config struct {
	Roster     []string
	Categories []Category
	Economy    Economy
	Node       Node
}

// Meals returns the full catalog in display order.
func (c Config) Meals() []string {
	var meals []string
	for _, cat := range c.Categories {
		meals = append(meals, cat.Meals...)
	}
	return meals
}

// CategoryOf returns the display category for a meal, "Misc" if untagged.
func (c Config) CategoryOf(meal string) string {
	for _, cat := range c.Categories {
		for _, m := range cat.Meals {
			if m == meal {
				return cat.Name
			}
		}
	}
	return "Misc"
}

func Default() Config {
	return Config{
		Roster: Roster,
		Categories: []Category{
			{Name: "Chicken", Meals: ChickenIndex},
			{Name: "Beef", Meals: BeefIndex},
			{Name: "Misc", Meals: MiscIndex},
		},
		Economy: Economy{
			InitialBalance:     decimal.NewFromInt(10000),
			InitialHouseSupply: 500,
			IPOStartPrice:      decimal.NewFromInt(200),
			IPODecayStep:       decimal.NewFromInt(1),
			IPODecayInterval:   3 * time.Second,
		},
		Node: Node{
			APIAddr:          ":8000",
			LogFile:          "data/mealex.log",
			SnapshotPath:     "",
			SnapshotInterval: 30 * time.Second,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("INITIAL_BALANCE"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.Economy.InitialBalance = d
		}
	}
	if v := os.Getenv("INITIAL_HOUSE_SUPPLY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Economy.InitialHouseSupply = n
		}
	}
	if v := os.Getenv("IPO_START_PRICE"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.Economy.IPOStartPrice = d
		}
	}
	if v := os.Getenv("IPO_DECAY_STEP"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.Economy.IPODecayStep = d
		}
	}
	if v := os.Getenv("IPO_DECAY_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Economy.IPODecayInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Node.APIAddr = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}
	if v := os.Getenv("SNAPSHOT_PATH"); v != "" {
		cfg.Node.SnapshotPath = v
	}
	if v := os.Getenv("SNAPSHOT_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Node.SnapshotInterval = time.Duration(n) * time.Second
		}
	}

	return cfg
}
