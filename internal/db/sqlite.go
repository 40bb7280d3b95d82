package db

import (
	"database/sql"
	"math"
	"sync"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteDriverName is a go-sqlite3 driver that registers geo_distance_km on every connection.
const SQLiteDriverName = "sqlite3_geo"

// earthRadiusKm matches the default sphere of MySQL's ST_Distance_Sphere.
const earthRadiusKm = 6370.986

var registerOnce sync.Once

func registerSQLiteDriver() {
	registerOnce.Do(func() {
		sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("geo_distance_km", DistanceKm, true)
			},
		})
	})
}

// SQLiteDialector returns a gorm dialector bound to the geo-enabled driver.
func SQLiteDialector(dsn string) gorm.Dialector {
	registerSQLiteDriver()
	return &sqlite.Dialector{DriverName: SQLiteDriverName, DSN: dsn}
}

// OpenSQLite opens and migrates a SQLite store. Used by tests and local runs.
//
// Example:
//
//	db, err := db.OpenSQLite("file:test?mode=memory&cache=shared", &gorm.Config{})
func OpenSQLite(dsn string, gcfg *gorm.Config) (*gorm.DB, error) {
	if gcfg == nil {
		gcfg = &gorm.Config{}
	}
	database, err := gorm.Open(SQLiteDialector(dsn), gcfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(database); err != nil {
		return nil, err
	}
	return database, nil
}

// DistanceKm is the haversine great-circle distance between two WGS84 points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
