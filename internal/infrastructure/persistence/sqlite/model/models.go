package model

// All lists every table created by init-db.
func All() []any {
	return []any{
		&Account{},
		&AuthSession{},
		&Profile{},
		&UserRole{},
		&Issue{},
		&QueryCacheEntry{},
	}
}
