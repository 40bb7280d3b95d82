package query

import "fmt"

// Dialect renders the parts of a predicate that differ between SQL engines.
// Only the great-circle distance does today.
type Dialect interface {
	Name() string
	// Distance returns an expression evaluating to the distance in kilometres between
	// the row's coordinates and p, plus the arguments it binds.
	Distance(latCol, lonCol string, p GeoPoint) (string, []any)
}

// MySQL uses the built-in ST_Distance_Sphere (metres, POINT(lon, lat)).
var MySQL Dialect = mysqlDialect{}

// SQLite relies on the geo_distance_km function registered by the db package.
var SQLite Dialect = sqliteDialect{}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Distance(latCol, lonCol string, p GeoPoint) (string, []any) {
	return fmt.Sprintf("(ST_Distance_Sphere(POINT(%s, %s), POINT(?, ?)) / 1000)", lonCol, latCol),
		[]any{p.Longitude, p.Latitude}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Distance(latCol, lonCol string, p GeoPoint) (string, []any) {
	return fmt.Sprintf("geo_distance_km(%s, %s, ?, ?)", latCol, lonCol),
		[]any{p.Latitude, p.Longitude}
}

// DialectFor maps a gorm dialector name onto a Dialect. Unknown names fall back to MySQL.
func DialectFor(name string) Dialect {
	if name == "sqlite" {
		return SQLite
	}
	return MySQL
}
