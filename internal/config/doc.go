// Package config loads problem matcher contributions and watches files for
// changes.
//
// Contribution files hold named problem patterns and problem matchers:
//
//	{
//	  "problemPatterns": [ { "name": "...", "regexp": "...", ... } ],
//	  "problemMatchers": [ { "name": "...", "pattern": "$...", ... } ]
//	}
//
// They may be written in JSON, YAML or TOML; the format is chosen by file
// extension. Each format is decoded to a generic map first and then into the
// matcher package's configuration types, so all three accept the same
// properties.
package config
