// Package econ provides the balance formulas of the rail economy:
// spawn rates, gold payouts, troop growth, and unit costs.
// All functions are pure; Config carries only tunables.
package econ

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ChanceScale is the denominator shared by all spawn-rate rolls.
// A rate of R means the event fires when rng.Intn(ChanceScale) < R.
const ChanceScale = 100_000

// Config holds the tunable balance parameters. Values not covered by a
// formula below are loaded from YAML, with DefaultConfig as the baseline.
type Config struct {
	// Station connection gates.
	TrainStationMinRange  float64 `yaml:"train_station_min_range" json:"train_station_min_range"`
	TrainStationMaxRange  float64 `yaml:"train_station_max_range" json:"train_station_max_range"`
	MaxConnectionDistance int     `yaml:"max_connection_distance" json:"max_connection_distance"`
	RailroadMaxSize       int     `yaml:"railroad_max_size" json:"railroad_max_size"`

	// Train shape and movement.
	TrainSpeed int `yaml:"train_speed" json:"train_speed"`
	NumCars    int `yaml:"num_cars" json:"num_cars"`
	CarSpacing int `yaml:"car_spacing" json:"car_spacing"`

	// Pathfinding budgets.
	PathIterations int `yaml:"path_iterations" json:"path_iterations"`
	PathMaxTries   int `yaml:"path_max_tries" json:"path_max_tries"`
}

// DefaultConfig returns the shipped balance values.
func DefaultConfig() Config {
	return Config{
		TrainStationMinRange:  25,
		TrainStationMaxRange:  100,
		MaxConnectionDistance: 4,
		RailroadMaxSize:       100,
		TrainSpeed:            2,
		NumCars:               5,
		CarSpacing:            2,
		PathIterations:        2500,
		PathMaxTries:          20,
	}
}

// Load reads a YAML tunables file over the defaults. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// TrainSpawnRate returns the per-trial spawn chance for a cluster with the
// given station count. Capped at 1400, reached exactly at 35² stations.
func (Config) TrainSpawnRate(stations int) int {
	rate := int(math.Round(40 * math.Sqrt(float64(stations))))
	if rate > 1400 {
		rate = 1400
	}
	return rate
}

// TrainGold is the flat per-stop bonus before level scaling.
func (Config) TrainGold(friendly bool) uint64 {
	if friendly {
		return 100_000
	}
	return 25_000
}

// TradeShipGold computes the arrival payout from distance traveled and the
// receiving player's port count. Each additional port adds a diminishing
// bonus (geometric series, ratio 0.9).
func (Config) TradeShipGold(dist, numPorts int) uint64 {
	base := float64(50_000 + 100*dist)
	mult := 1.0
	bonus := 0.25
	for i := 0; i < numPorts; i++ {
		mult += bonus
		bonus *= 0.9
	}
	return uint64(math.Floor(base * mult))
}

// TradeShipSpawnRate returns the per-trial spawn chance given the current
// number of live trade ships. Saturates above 150 ships.
func (Config) TradeShipSpawnRate(ships int) int {
	switch {
	case ships < 20:
		return 5
	case ships <= 150:
		return int(math.Floor(math.Pow(float64(ships-20), 0.85) + 5))
	default:
		return 1_000_000
	}
}

// TroopIncreaseRate returns the troop growth for one tick, following a
// diminishing-returns curve. The result never pushes troops past max.
func (Config) TroopIncreaseRate(troops, max float64) float64 {
	if max <= 0 {
		return 0
	}
	toAdd := (10 + math.Pow(troops, 0.73)/4) * (1 - troops/max)
	if troops+toAdd > max {
		toAdd = max - troops
	}
	if toAdd < 0 {
		toAdd = 0
	}
	return toAdd
}

// GoldAdditionRate is the flat worker income per tick.
func (Config) GoldAdditionRate() uint64 {
	return 100
}

// UnitCost returns the price of the (n+1)th unit of a type: doubling from
// 125k, capped at one million.
func (Config) UnitCost(owned int) uint64 {
	cost := uint64(125_000)
	for i := 0; i < owned; i++ {
		cost *= 2
		if cost >= 1_000_000 {
			return 1_000_000
		}
	}
	return cost
}
