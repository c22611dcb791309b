package modelio

import (
	"github.com/iiifsearch/canvasindexer/pkg/ent/model"
	"github.com/jinzhu/gorm"
)

type modelio struct {
	db *gorm.DB
}

// New returns a new instance of Model
func New(db *gorm.DB) model.Model {
	res := modelio{db: db}
	return &res
}

// Migrate creates tables in the database.
func (m *modelio) Migrate() error {
	m.db.AutoMigrate(
		&model.Term{},
		&model.Canvas{},
		&model.Curation{},
		&model.TermCanvasAssoc{},
		&model.TermCurationAssoc{},
		&model.CrawlLog{},
		&model.FacetList{},
		&model.BotState{},
	)
	if m.db.Error != nil {
		return m.db.Error
	}

	return nil
}
