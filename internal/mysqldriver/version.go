package mysqldriver

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
)

// ServerVersion is a parsed MySQL server version, adapted from the
// teacher's internal/mysql.ServerVersion but trimmed to the fields the
// capability-detection logic below actually needs.
type ServerVersion struct {
	Raw    string
	Major  int
	Minor  int
	Patch  int
	Flavor string // "mysql", "percona", "percona-xtradb-cluster", "mariadb"
}

func (v ServerVersion) String() string {
	return fmt.Sprintf("%d.%d.%d (%s)", v.Major, v.Minor, v.Patch, v.Flavor)
}

// AtLeast reports whether the server version is >= the given version.
func (v ServerVersion) AtLeast(major, minor, patch int) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Patch >= patch
}

var versionRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// ParseVersion parses the string returned by SELECT VERSION().
func ParseVersion(raw string) (ServerVersion, error) {
	m := versionRe.FindStringSubmatch(raw)
	if m == nil {
		return ServerVersion{}, fmt.Errorf("unrecognized version string %q", raw)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])

	flavor := "mysql"
	switch {
	case containsFold(raw, "percona-xtradb-cluster"), containsFold(raw, "xtradb cluster"), containsFold(raw, "pxc"):
		flavor = "percona-xtradb-cluster"
	case containsFold(raw, "percona"):
		flavor = "percona"
	case containsFold(raw, "mariadb"):
		flavor = "mariadb"
	}

	return ServerVersion{Raw: raw, Major: major, Minor: minor, Patch: patch, Flavor: flavor}, nil
}

func containsFold(s, sub string) bool {
	return len(s) >= len(sub) && regexp.MustCompile(`(?i)`+regexp.QuoteMeta(sub)).MatchString(s)
}

// GetServerVersion queries and parses the connected server's version.
func GetServerVersion(db *sql.DB) (ServerVersion, error) {
	var raw string
	if err := db.QueryRow("SELECT VERSION()").Scan(&raw); err != nil {
		return ServerVersion{}, fmt.Errorf("querying version: %w", err)
	}
	return ParseVersion(raw)
}
