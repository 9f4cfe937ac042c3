package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей маркетплейса.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&ProviderProfile{},
		&Case{},
		&Consultation{},
		&Message{},
		&BlockRelation{},
		&Event{},
	)
}
