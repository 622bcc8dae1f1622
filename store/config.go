package store

// Config holds configuration for the Store.
type Config struct {
	// Tables maps an entity kind (e.g. "boat") to its DynamoDB table name.
	// Kinds without an entry use the kind itself as table name.
	Tables map[string]string

	// MaxIDAttempts bounds how many fresh ids Insert draws when the
	// conditional put collides with an existing item.
	// Default: 5
	// Max: 20
	MaxIDAttempts int
}

// DefaultConfig returns defaults where every kind is stored in a table of
// the same name.
func DefaultConfig() Config {
	return Config{
		Tables:        map[string]string{},
		MaxIDAttempts: 5,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.Tables == nil {
		c.Tables = map[string]string{}
	}
	if c.MaxIDAttempts < 1 {
		c.MaxIDAttempts = 5
	}
	if c.MaxIDAttempts > 20 {
		c.MaxIDAttempts = 20
	}
}

// table resolves the table name for a kind.
func (c *Config) table(kind string) string {
	if t, ok := c.Tables[kind]; ok && t != "" {
		return t
	}
	return kind
}

// kind resolves the kind stored in a table, or "" if the table is unknown.
func (c *Config) kind(table string) string {
	for k, t := range c.Tables {
		if t == table {
			return k
		}
	}
	return ""
}
