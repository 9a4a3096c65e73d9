// Global database config.
package config

// Name of the database.
const DBName = "hashdb"

// Prompt printed by REPL.
const Prompt = DBName + "> "

// The number of frames in a buffer pool unless a caller sizes one explicitly.
const DefaultPoolSize = 64

// Return prompt if requested, else "".
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}
