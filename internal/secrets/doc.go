// Package secrets masks credentials in strings written to redirect records.
//
// Rules are regular expressions. When a rule has capture groups only the last
// group is replaced, so `password=hunter2` becomes `password=***` with the key
// kept as written. Rules and the allow list can be extended from the
// `secrets` config section; whether masking runs at all follows
// debug/redirect/sanitize_sensitive_data for the request's scope.
package secrets
