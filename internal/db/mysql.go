package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	m "coinfolio/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type SQLStorage struct {
	db *gorm.DB
	lg zerolog.Logger
}

func NewSQLStorage(mc *MysqlConfig, opts ...gorm.Option) (*SQLStorage, error) {

	dsn := stgDsn(mc)
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	lg := zerolog.New(os.Stdout).With().Str("Module", "SQLStorage").Timestamp().Logger()

	// gorm writes through the same zerolog sink
	gormLogger := logger.New(
		&lg,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	opts = append([]gorm.Option{&gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	}}, opts...)

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn: sqlDB,
	}), opts...)
	if err != nil {
		return nil, err
	}

	stg := &SQLStorage{
		db: db,
		lg: lg,
	}
	if err := stg.initTables(); err != nil {
		return nil, err
	}
	return stg, nil
}

func stgDsn(conf *MysqlConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", conf.user, conf.password, conf.ip, conf.port, conf.scheme)
}

func (s *SQLStorage) initTables() error {
	if err := s.db.AutoMigrate(&m.User{}, &m.Coin{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLStorage) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func sqlErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return m.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(m.ErrConflict, err)
	default:
		return err
	}
}

/***************************************************************** users ****************************************************************/

func (s *SQLStorage) UserByID(ctx context.Context, id m.ID) (*m.User, error) {
	var u m.User
	if err := s.db.WithContext(ctx).Where("_id = ?", id).First(&u).Error; err != nil {
		return nil, sqlErr(err)
	}
	return &u, nil
}

func (s *SQLStorage) UserByEmail(ctx context.Context, email string) (*m.User, error) {
	var u m.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, sqlErr(err)
	}
	return &u, nil
}

func (s *SQLStorage) UserByEmailOrUsername(ctx context.Context, email, username string) (*m.User, error) {
	var u m.User
	err := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", email, username).
		First(&u).
		Error
	if err != nil {
		return nil, sqlErr(err)
	}
	return &u, nil
}

func (s *SQLStorage) UserTaken(ctx context.Context, except m.ID, email, username string) (bool, error) {
	if email == "" && username == "" {
		return false, nil
	}

	query := s.db.WithContext(ctx).Model(&m.User{}).Where("_id <> ?", except)
	switch {
	case email != "" && username != "":
		query = query.Where("email = ? OR username = ?", email, username)
	case email != "":
		query = query.Where("email = ?", email)
	default:
		query = query.Where("username = ?", username)
	}

	var n int64
	if err := query.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStorage) Users(ctx context.Context, page m.Page) ([]m.User, int64, error) {

	var total int64
	if err := s.db.WithContext(ctx).Model(&m.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Order("createdAt DESC")
	if page.Limit > 0 {
		query = query.Offset(page.Offset()).Limit(page.Limit)
	}

	users := []m.User{}
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}

	s.lg.Info().Msgf("Retrieved %d users of %d", len(users), total)
	return users, total, nil
}

func (s *SQLStorage) InsertUser(ctx context.Context, u *m.User) error {
	if u.ID.IsZero() {
		u.ID = m.NewID()
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return sqlErr(err)
	}

	s.lg.Info().Str("id", u.ID.String()).Msg("Inserted user")
	return nil
}

// memo. map Updates writes zero values too, unlike struct Updates
func (s *SQLStorage) UpdateUser(ctx context.Context, id m.ID, fields m.Fields) (*m.User, error) {
	var u m.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("_id = ?", id).First(&u).Error; err != nil {
			return err
		}
		if err := tx.Model(&m.User{}).Where("_id = ?", id).Updates(map[string]any(fields)).Error; err != nil {
			return err
		}
		return tx.Where("_id = ?", id).First(&u).Error
	})
	if err != nil {
		return nil, sqlErr(err)
	}
	return &u, nil
}

func (s *SQLStorage) DeleteUser(ctx context.Context, id m.ID) error {
	result := s.db.WithContext(ctx).Where("_id = ?", id).Delete(&m.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return m.ErrNotFound
	}

	s.lg.Info().Str("id", id.String()).Msg("Deleted user")
	return nil
}

/***************************************************************** coins ****************************************************************/

func (s *SQLStorage) CoinByID(ctx context.Context, id, userID m.ID) (*m.Coin, error) {
	var c m.Coin
	err := s.db.WithContext(ctx).
		Where("_id = ? AND userId = ?", id, userID).
		First(&c).
		Error
	if err != nil {
		return nil, sqlErr(err)
	}
	return &c, nil
}

func (s *SQLStorage) ActiveCoinBySymbol(ctx context.Context, userID m.ID, symbol string) (*m.Coin, error) {
	var c m.Coin
	err := s.db.WithContext(ctx).
		Where("userId = ? AND symbol = ? AND isActive = ?", userID, symbol, true).
		First(&c).
		Error
	if err != nil {
		return nil, sqlErr(err)
	}
	return &c, nil
}

func (s *SQLStorage) Coins(ctx context.Context, userID m.ID, filter m.CoinFilter) ([]m.Coin, error) {

	query := s.db.WithContext(ctx).Model(&m.Coin{}).Where("userId = ?", userID)
	if filter.Active != nil {
		query = query.Where("isActive = ?", *filter.Active)
	}
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	query = query.Order(clause.OrderByColumn{
		Column: clause.Column{Name: sortField(filter.Sort)},
		Desc:   filter.Desc,
	})

	coins := []m.Coin{}
	if err := query.Find(&coins).Error; err != nil {
		return nil, err
	}

	s.lg.Debug().Msgf("Retrieved %d coins for user %s", len(coins), userID)
	return coins, nil
}

func (s *SQLStorage) InsertCoin(ctx context.Context, c *m.Coin) error {
	if c.ID.IsZero() {
		c.ID = m.NewID()
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return sqlErr(err)
	}

	s.lg.Info().Str("id", c.ID.String()).Str("symbol", c.Symbol).Msg("Inserted coin")
	return nil
}

func (s *SQLStorage) UpdateCoin(ctx context.Context, id, userID m.ID, fields m.Fields) (*m.Coin, error) {
	var c m.Coin
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("_id = ? AND userId = ?", id, userID).First(&c).Error; err != nil {
			return err
		}
		if err := tx.Model(&m.Coin{}).Where("_id = ?", id).Updates(map[string]any(fields)).Error; err != nil {
			return err
		}
		return tx.Where("_id = ?", id).First(&c).Error
	})
	if err != nil {
		return nil, sqlErr(err)
	}
	return &c, nil
}

func (s *SQLStorage) DeleteCoin(ctx context.Context, id, userID m.ID) error {
	result := s.db.WithContext(ctx).Where("_id = ? AND userId = ?", id, userID).Delete(&m.Coin{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return m.ErrNotFound
	}
	return nil
}

func (s *SQLStorage) DeleteCoinsByOwner(ctx context.Context, userID m.ID) (int64, error) {
	result := s.db.WithContext(ctx).Where("userId = ?", userID).Delete(&m.Coin{})
	if result.Error != nil {
		return 0, result.Error
	}

	s.lg.Info().Int64("deleted", result.RowsAffected).Str("userId", userID.String()).Msg("Deleted coins of user")
	return result.RowsAffected, nil
}
