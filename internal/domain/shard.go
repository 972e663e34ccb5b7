package domain

import "path/filepath"

// ShardKey returns the shard directory name for an address: its last two
// characters, or the whole address if shorter.
func ShardKey(icao string) string {
	r := []rune(icao)
	if len(r) < 2 {
		return icao
	}
	return string(r[len(r)-2:])
}

// ShardPath maps an address to root/<ShardKey>/<ICAO>.json.
func ShardPath(root, icao string) string {
	return filepath.Join(root, ShardKey(icao), icao+".json")
}
