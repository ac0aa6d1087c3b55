// Package persistence provides SQLite-based world state storage.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/arlott/railfront/internal/engine"
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/rail"
	"github.com/arlott/railfront/internal/world"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		gold INTEGER NOT NULL,
		troops REAL NOT NULL,
		max_troops REAL NOT NULL,
		alive INTEGER NOT NULL,
		territory_json TEXT NOT NULL,
		alliances_json TEXT NOT NULL,
		embargoes_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stations (
		id INTEGER PRIMARY KEY,
		kind INTEGER NOT NULL,
		unit INTEGER NOT NULL,
		owner INTEGER NOT NULL,
		level INTEGER NOT NULL,
		tile_x INTEGER NOT NULL,
		tile_y INTEGER NOT NULL,
		cluster INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS railroads (
		a INTEGER NOT NULL,
		b INTEGER NOT NULL,
		path_json TEXT NOT NULL,
		PRIMARY KEY (a, b)
	);

	CREATE TABLE IF NOT EXISTS trade_ships (
		id TEXT PRIMARY KEY,
		owner INTEGER NOT NULL,
		src INTEGER NOT NULL,
		dst INTEGER NOT NULL,
		tiles INTEGER NOT NULL,
		captured INTEGER NOT NULL,
		safe INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		category TEXT NOT NULL,
		message TEXT NOT NULL,
		player INTEGER NOT NULL,
		agent TEXT
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_stations_owner ON stations(owner);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SavePlayers writes all players to the database (full replace).
func (db *DB) SavePlayers(players []game.Player) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM players"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO players
		(id, name, gold, troops, max_troops, alive,
		 territory_json, alliances_json, embargoes_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		territory := make([]world.Tile, 0, len(p.Territory))
		for t := range p.Territory {
			territory = append(territory, t)
		}
		territoryJSON, _ := json.Marshal(territory)
		alliancesJSON, _ := json.Marshal(p.Alliances)
		embargoesJSON, _ := json.Marshal(p.Embargoes)

		alive := 0
		if p.Alive {
			alive = 1
		}

		_, err := stmt.Exec(
			p.ID, p.Name, p.Gold, p.Troops, p.MaxTroops, alive,
			string(territoryJSON), string(alliancesJSON), string(embargoesJSON),
		)
		if err != nil {
			return fmt.Errorf("insert player %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// LoadPlayers reads the stored player roster.
func (db *DB) LoadPlayers() (map[game.PlayerID]*game.Player, error) {
	rows, err := db.conn.Queryx(`SELECT id, name, gold, troops, max_troops, alive,
		territory_json, alliances_json, embargoes_json FROM players`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make(map[game.PlayerID]*game.Player)
	for rows.Next() {
		var (
			id                                 int
			name                               string
			gold                               uint64
			troops, maxTroops                  float64
			alive                              int
			territoryJS, alliancesJS, embargJS string
		)
		if err := rows.Scan(&id, &name, &gold, &troops, &maxTroops, &alive,
			&territoryJS, &alliancesJS, &embargJS); err != nil {
			return nil, err
		}

		p := game.NewPlayer(game.PlayerID(id), name, maxTroops)
		p.Gold = gold
		p.Troops = troops
		p.Alive = alive != 0

		var territory []world.Tile
		if err := json.Unmarshal([]byte(territoryJS), &territory); err != nil {
			return nil, fmt.Errorf("player %d territory: %w", id, err)
		}
		for _, t := range territory {
			p.AddTile(t)
		}
		if err := json.Unmarshal([]byte(alliancesJS), &p.Alliances); err != nil {
			return nil, fmt.Errorf("player %d alliances: %w", id, err)
		}
		if err := json.Unmarshal([]byte(embargJS), &p.Embargoes); err != nil {
			return nil, fmt.Errorf("player %d embargoes: %w", id, err)
		}

		players[p.ID] = p
	}
	return players, rows.Err()
}

// SaveTopology writes the rail network snapshot (full replace).
func (db *DB) SaveTopology(snap rail.Snapshot) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM stations"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM railroads"); err != nil {
		return err
	}

	for _, st := range snap.Stations {
		_, err := tx.Exec(`INSERT INTO stations
			(id, kind, unit, owner, level, tile_x, tile_y, cluster)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			st.ID, st.Kind, st.Unit, st.Owner, st.Level, st.Tile.X, st.Tile.Y, st.Cluster,
		)
		if err != nil {
			return fmt.Errorf("insert station %d: %w", st.ID, err)
		}
	}

	for _, r := range snap.Railroads {
		pathJSON, _ := json.Marshal(r.Path)
		_, err := tx.Exec(
			"INSERT INTO railroads (a, b, path_json) VALUES (?, ?, ?)",
			r.A, r.B, string(pathJSON),
		)
		if err != nil {
			return fmt.Errorf("insert railroad %d-%d: %w", r.A, r.B, err)
		}
	}

	return tx.Commit()
}

// LoadTopology reads the stored rail network snapshot. Cluster assignments
// are not read back; rail.Network.Restore recomputes them from connectivity.
func (db *DB) LoadTopology() (rail.Snapshot, error) {
	var snap rail.Snapshot

	rows, err := db.conn.Queryx(
		"SELECT id, kind, unit, owner, level, tile_x, tile_y, cluster FROM stations")
	if err != nil {
		return snap, err
	}
	defer rows.Close()

	for rows.Next() {
		var st rail.StationSnap
		var x, y int
		if err := rows.Scan(&st.ID, &st.Kind, &st.Unit, &st.Owner, &st.Level,
			&x, &y, &st.Cluster); err != nil {
			return snap, err
		}
		st.Tile = world.Tile{X: x, Y: y}
		snap.Stations = append(snap.Stations, st)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	railRows, err := db.conn.Queryx("SELECT a, b, path_json FROM railroads")
	if err != nil {
		return snap, err
	}
	defer railRows.Close()

	for railRows.Next() {
		var r rail.RailroadSnap
		var pathJS string
		if err := railRows.Scan(&r.A, &r.B, &pathJS); err != nil {
			return snap, err
		}
		if err := json.Unmarshal([]byte(pathJS), &r.Path); err != nil {
			return snap, fmt.Errorf("railroad %d-%d path: %w", r.A, r.B, err)
		}
		snap.Railroads = append(snap.Railroads, r)
	}
	return snap, railRows.Err()
}

// SaveEvents appends display events to the database.
func (db *DB) SaveEvents(events []game.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, category, message, player, agent) VALUES (?, ?, ?, ?, ?)",
			e.Tick, e.Category, e.Message, e.Player, e.Agent,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N stored events, newest first.
func (db *DB) RecentEvents(limit int) ([]game.Event, error) {
	var events []game.Event
	err := db.conn.Select(&events,
		"SELECT tick, category, message, player, agent FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState performs a full save of the simulation.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	players := sim.PlayerList()
	topo := sim.Topology()
	slog.Info("saving world state", "players", len(players), "stations", len(topo.Stations))

	if err := db.SavePlayers(players); err != nil {
		return fmt.Errorf("save players: %w", err)
	}
	if err := db.SaveTopology(topo); err != nil {
		return fmt.Errorf("save topology: %w", err)
	}
	if err := db.SaveShips(sim); err != nil {
		return fmt.Errorf("save ships: %w", err)
	}
	if err := db.SaveEvents(sim.RecentEvents(0)); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_tick", strconv.FormatUint(sim.CurrentTick(), 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved")
	return nil
}

// SaveShips records the live trade ships (full replace). Ships are saved
// for observation only; in-transit pathfinder state is not resumable and a
// reloaded world starts them over from the spawn rolls.
func (db *DB) SaveShips(sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM trade_ships"); err != nil {
		return err
	}

	for _, sh := range sim.Ships {
		captured, safe := 0, 0
		if sh.Captured {
			captured = 1
		}
		if sh.Safe {
			safe = 1
		}
		_, err := tx.Exec(
			"INSERT INTO trade_ships (id, owner, src, dst, tiles, captured, safe) VALUES (?, ?, ?, ?, ?, ?, ?)",
			sh.ID.String(), sh.Owner, sh.Src, sh.Dst, sh.Tiles, captured, safe,
		)
		if err != nil {
			return fmt.Errorf("insert ship %s: %w", sh.ID, err)
		}
	}

	return tx.Commit()
}
