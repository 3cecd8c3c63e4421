package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys lists the valid keys of every section in the config file.
var knownKeys = map[string][]string{
	"forge": {
		"client_id", "client_secret", "callback_url", "auth_url", "token_url", "api_base_url",
	},
	"server": {
		"listen_addr", "static_dir", "read_timeout", "write_timeout", "idle_timeout", "shutdown_timeout",
	},
	"session": {
		"backend", "cookie_name", "max_age", "secure", "secret", "key_file", "db_path", "sweep_interval",
	},
	"resolver": {"fanout", "max_ref_depth", "time_zone"},
	"network": {
		"connect_timeout", "data_timeout", "user_agent", "requests_per_second", "burst",
	},
	"logging": {"log_level", "log_format"},
}

// knownSectionsList is the sorted list of section names. Sorted for
// deterministic suggestions when two candidates have the same edit distance.
var knownSectionsList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	reported := make(map[string]bool)

	for _, key := range undecoded {
		if len(key) == 0 {
			continue
		}

		// Keys inside an unknown section are reported once, at the section level.
		if _, ok := knownKeys[key[0]]; !ok {
			if reported[key[0]] {
				continue
			}

			reported[key[0]] = true
		}

		if err := buildKeyError(key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// buildKeyError describes one undecoded key.
func buildKeyError(key toml.Key) error {
	section := key[0]

	fields, ok := knownKeys[section]
	if !ok {
		return suggest("unknown config section", section, knownSectionsList)
	}

	if len(key) < 2 {
		return fmt.Errorf("config key %q must be a table", section)
	}

	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)

	return suggest(fmt.Sprintf("unknown key in [%s]", section), strings.Join(key[1:], "."), sorted)
}

func suggest(prefix, name string, known []string) error {
	if s := closestMatch(name, known); s != "" {
		return fmt.Errorf("%s %q (did you mean %q?)", prefix, name, s)
	}

	return fmt.Errorf("%s %q", prefix, name)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
