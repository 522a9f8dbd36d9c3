package db

import (
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/models"
	"gorm.io/gorm"
)

type Database struct {
	Orm *gorm.DB
}

func NewDatabase(orm *gorm.DB) Database {
	return Database{Orm: orm}
}

func (db Database) Initialize() error {
	return db.Orm.AutoMigrate(
		&models.Integration{},
	)
}
