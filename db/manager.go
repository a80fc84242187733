package db

import (
	"context"
	"fmt"
	"time"

	"clipcast/config"
	"clipcast/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

// Manager - явный хендл пула соединений. Создается один раз в main и
// передается по ссылке во все сервисы, глобального состояния нет.
type Manager struct {
	orm *gorm.DB
}

func dsnFromConfig(dbConf config.DBConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Password, dbConf.DBName,
	)
}

func NewManager(conf *config.ConfigSchema) (*Manager, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is not loaded")
	}
	if conf.Databases.Master.Host == "" {
		return nil, fmt.Errorf("master database configuration is missing")
	}

	masterDSN := dsnFromConfig(conf.Databases.Master)
	replicaDSNs := make([]gorm.Dialector, 0, len(conf.Databases.Replicas))
	for _, r := range conf.Databases.Replicas {
		replicaDSNs = append(replicaDSNs, postgres.Open(dsnFromConfig(r)))
	}

	orm, err := gorm.Open(postgres.Open(masterDSN), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
			NoLowerCase:   false,
		},
	})
	if err != nil {
		return nil, err
	}

	if len(replicaDSNs) > 0 {
		err = orm.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicaDSNs,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, err
		}
	}

	// Пул ограничен, чтобы всплеск запросов не исчерпал соединения БД
	sqlDB, err := orm.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := conf.Pool.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	maxIdle := conf.Pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(orm); err != nil {
		return nil, err
	}

	return &Manager{orm: orm}, nil
}

// NewManagerWithORM оборачивает готовое подключение (тесты, sqlite in-memory)
func NewManagerWithORM(orm *gorm.DB) *Manager {
	return &Manager{orm: orm}
}

// Read возвращает подключение для чтения (слейвы)
func (m *Manager) Read(ctx context.Context) *gorm.DB {
	return m.orm.WithContext(ctx).Clauses(dbresolver.Read)
}

// Write возвращает подключение для записи (мастер)
func (m *Manager) Write(ctx context.Context) *gorm.DB {
	return m.orm.WithContext(ctx).Clauses(dbresolver.Write)
}

func (m *Manager) Close() error {
	sqlDB, err := m.orm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate применяет автомиграцию моделей и дополнительные индексы
func Migrate(orm *gorm.DB) error {
	err := orm.AutoMigrate(
		&models.User{},
		&models.UserTokens{},
		&models.Block{},
		&models.Content{},
		&models.ContentUser{},
		&models.PlayHistory{},
		&models.Comment{},
		&models.Notification{},
	)
	if err != nil {
		return err
	}
	return EnsureIndexes(orm)
}
