// Package file is a TOML file implementation of the ConfigStore port,
// plus a watcher that reloads the file when it changes on disk.
//
// The file holds the client secret and database password in clear
// text; it is written with 0600 permissions and that is the
// confidentiality boundary, matching how connection strings are
// usually kept.
package file
