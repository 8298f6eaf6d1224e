// Package database provides connection management, migrations, foreign key
// handling, seeding, configuration loading, logging and health checks for
// the Bun-backed repositories.
package database
