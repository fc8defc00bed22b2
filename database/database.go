package database

import (
	"errors"
	"fmt"

	"github.com/bitterfly/go-chaos/fabrica/config"
	"github.com/bitterfly/go-chaos/fabrica/schema"
	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ErrorType int

const (
	InsertError ErrorType = iota
	ConflictError
	OpenError
	ConfigError
	MigrateError
	UpdateError
	QueryError
	NotFoundError
)

type DatabaseError struct {
	ErrorType ErrorType
	msg       error
}

func newError(t ErrorType, prefix string, err error) *DatabaseError {
	if err == nil {
		return nil
	}
	return &DatabaseError{
		ErrorType: t,
		msg:       fmt.Errorf("database %s error: %w", prefix, err),
	}
}

func newMigrateError(err error) *DatabaseError  { return newError(MigrateError, "migrate", err) }
func newConflictError(err error) *DatabaseError { return newError(ConflictError, "create", err) }
func newOpenError(err error) *DatabaseError     { return newError(OpenError, "open", err) }
func newInsertError(err error) *DatabaseError   { return newError(InsertError, "insert", err) }
func newConfigError(err error) *DatabaseError   { return newError(ConfigError, "config", err) }
func newUpdateError(err error) *DatabaseError   { return newError(UpdateError, "update", err) }

// newQueryError reports a missing record as NotFoundError.
func newQueryError(err error) *DatabaseError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(NotFoundError, "query", err)
	}
	return newError(QueryError, "query", err)
}

func (e *DatabaseError) Error() string {
	return e.msg.Error()
}

func (e *DatabaseError) Unwrap() error {
	return errors.Unwrap(e.msg)
}

func Open(cfg config.Database) (*gorm.DB, *DatabaseError) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.String())
	case "sqlite":
		dialector = sqlite.Open(cfg.String())
	default:
		return nil, newConfigError(fmt.Errorf("unsupported driver %q", cfg.Driver))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, newOpenError(err)
	}
	return db, nil
}

func Automigrate(db *gorm.DB) *DatabaseError {
	if err := db.AutoMigrate(&schema.GameObject{}); err != nil {
		return newMigrateError(fmt.Errorf("schema game object, %w", err))
	}
	return nil
}

func AddGame(db *gorm.DB, game *schema.GameObject) *DatabaseError {
	var count int64
	if err := db.Unscoped().Model(&schema.GameObject{}).Where("slug = ?", game.Slug).Count(&count).Error; err != nil {
		return newQueryError(err)
	}
	if count > 0 {
		return newConflictError(fmt.Errorf("game with slug %s already exists", game.Slug))
	}

	if err := db.Create(game).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return newConflictError(err)
		}
		return newInsertError(err)
	}
	return nil
}

func GetGameBySlug(db *gorm.DB, kind schema.Kind, slug string) (*schema.GameObject, *DatabaseError) {
	var game schema.GameObject
	err := db.Where("kind = ? AND slug = ?", kind, slug).First(&game).Error
	if err != nil {
		return nil, newQueryError(err)
	}
	return &game, nil
}

// ListGames returns the newest games of a kind first.
func ListGames(db *gorm.DB, kind schema.Kind, limit int) ([]schema.GameObject, *DatabaseError) {
	games := make([]schema.GameObject, 0)
	err := db.Where("kind = ?", kind).Order("created_at desc, id desc").Limit(limit).Find(&games).Error
	if err != nil {
		return nil, newQueryError(err)
	}
	return games, nil
}

// UpdateGame replaces name, layout and options. The slug never changes.
func UpdateGame(db *gorm.DB, kind schema.Kind, slug, name string, layout int, options datatypes.JSON) (*schema.GameObject, *DatabaseError) {
	game, derr := GetGameBySlug(db, kind, slug)
	if derr != nil {
		return nil, derr
	}
	err := db.Model(game).Updates(map[string]interface{}{
		"name":    name,
		"layout":  layout,
		"options": options,
	}).Error
	if err != nil {
		return nil, newUpdateError(err)
	}
	return GetGameBySlug(db, kind, slug)
}

func DeleteGame(db *gorm.DB, kind schema.Kind, slug string) *DatabaseError {
	res := db.Where("kind = ? AND slug = ?", kind, slug).Delete(&schema.GameObject{})
	if res.Error != nil {
		return newUpdateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return newQueryError(gorm.ErrRecordNotFound)
	}
	return nil
}
