package database

import (
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/repository"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	SyncRecord      domainRepo.SyncRecordRepository
	TranslationLink domainRepo.TranslationLinkRepository
	TranslationJob  domainRepo.TranslationJobRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		SyncRecord:      repository.NewSyncRecordRepository(db),
		TranslationLink: repository.NewTranslationLinkRepository(db),
		TranslationJob:  repository.NewTranslationJobRepository(db),
	}
}
