package database

import (
	"fmt"

	"workspace-service/internal/model"
	"workspace-service/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB initializes the database connection with configuration and runs migrations
func InitDB(config *config.Config) error {
	var err error

	// Create DSN string
	dsn := config.DB.GetDSN()

	// Configure Postgres options
	pgConfig := postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	// Open connection
	db, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(config.DB.LogLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get generic database object SQL
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}

	// Set connection pool settings from config
	sqlDB.SetMaxIdleConns(config.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.DB.ConnMaxLifetime)

	// Run migrations and seed the environment reference set
	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	if err := SeedEnvironmentTypes(db); err != nil {
		return fmt.Errorf("failed to seed environment types: %w", err)
	}

	return nil
}

// Migrate registers the artifact-tag join model and migrates all tables
func Migrate(conn *gorm.DB) error {
	if err := conn.SetupJoinTable(&model.Artifact{}, "Tags", &model.ArtifactTag{}); err != nil {
		return err
	}
	return conn.AutoMigrate(
		&model.Workspace{},
		&model.EnvironmentType{},
		&model.WorkspaceEnvironment{},
		&model.Artifact{},
		&model.Tag{},
	)
}

// SeedEnvironmentTypes ensures the canonical DEV/STAGING/PROD rows exist
func SeedEnvironmentTypes(conn *gorm.DB) error {
	seed := []model.EnvironmentType{
		{Name: "Development", Slug: model.EnvDev, DisplayOrder: 0},
		{Name: "Staging", Slug: model.EnvStaging, DisplayOrder: 1},
		{Name: "Production", Slug: model.EnvProd, DisplayOrder: 2},
	}
	for _, et := range seed {
		var row model.EnvironmentType
		if err := conn.Where(model.EnvironmentType{Slug: et.Slug}).
			Attrs(et).FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// Set replaces the active connection. Tests use this to point the handlers
// at an isolated database.
func Set(conn *gorm.DB) {
	db = conn
}
