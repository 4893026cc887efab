package models

// All lists every model managed by auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Assignment{},
		&Notification{},
		&ActivityLog{},
		&UploadRecord{},
	}
}
