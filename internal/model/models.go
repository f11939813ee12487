package model

// All lists every table managed by AutoMigrate, parents before children.
func All() []interface{} {
	return []interface{}{
		&ExplorationSession{},
		&ExplorationOption{},
		&ExplorationMemoryNote{},
		&UserPreference{},
		&ProjectVersion{},
		&ProjectFile{},
	}
}
