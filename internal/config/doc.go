// Package config locates, parses, and validates downpour configuration data.
//
// Configuration lives in an INI file named config.ini or .downpour.ini,
// discovered by probing an ordered list of directories (user home, then the
// working directory by default). Validation fails closed: a missing required
// section or key aborts the load with an error naming it exactly.
//
// Always obtain settings through this package so downstream code receives a
// validated configuration; values are kept verbatim as parsed so flag
// formatting for the daemon never drifts from what the operator wrote.
package config
