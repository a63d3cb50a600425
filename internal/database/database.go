package database

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	db *gorm.DB
}

// Models

type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	TelegramID       int64     `gorm:"uniqueIndex"`
	TelegramUsername string
	DegenMode        bool `gorm:"default:false"`
	Notifications    bool `gorm:"default:true"`
	SlippagePct      int  `gorm:"default:5"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Wallet is a custodial wallet. WalletID is the custodian's handle; Address
// and PublicKey are the derived on-chain identity.
type Wallet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	WalletID  string
	Address   string `gorm:"uniqueIndex"`
	PublicKey string
	IsPrimary bool `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SubAccount struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	WalletID  uuid.UUID `gorm:"type:uuid;index"`
	Address   string    `gorm:"uniqueIndex"`
	IsPrimary bool      `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	// Check if this is a PostgreSQL connection string
	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connected (PostgreSQL)")
	} else {
		// SQLite fallback
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&User{}, &Wallet{}, &SubAccount{}); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// User operations

// CreateUserWithWallet inserts a new user together with their primary wallet
// in one transaction, so onboarding never leaves a user without a wallet row.
func (d *Database) CreateUserWithWallet(user *User, wallet *Wallet) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	wallet.UserID = user.ID
	wallet.IsPrimary = true
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(wallet).Error
	})
}

func (d *Database) GetUserByTelegramID(telegramID int64) (*User, error) {
	var user User
	err := d.db.First(&user, "telegram_id = ?", telegramID).Error
	return &user, err
}

func (d *Database) GetUserByID(id uuid.UUID) (*User, error) {
	var user User
	err := d.db.First(&user, "id = ?", id).Error
	return &user, err
}

func (d *Database) SetDegenMode(userID uuid.UUID, enabled bool) error {
	return d.db.Model(&User{}).Where("id = ?", userID).Update("degen_mode", enabled).Error
}

func (d *Database) SetNotifications(userID uuid.UUID, enabled bool) error {
	return d.db.Model(&User{}).Where("id = ?", userID).Update("notifications", enabled).Error
}

func (d *Database) SetSlippage(userID uuid.UUID, pct int) error {
	return d.db.Model(&User{}).Where("id = ?", userID).Update("slippage_pct", pct).Error
}

// Wallet operations

func (d *Database) GetPrimaryWallet(userID uuid.UUID) (*Wallet, error) {
	var wallet Wallet
	err := d.db.Where("user_id = ? AND is_primary = ?", userID, true).First(&wallet).Error
	return &wallet, err
}

func (d *Database) GetWalletByAddress(address string) (*Wallet, error) {
	var wallet Wallet
	err := d.db.First(&wallet, "address = ?", address).Error
	return &wallet, err
}

// SubAccount operations

func (d *Database) SaveSubAccount(sub *SubAccount) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	return d.db.Save(sub).Error
}

func (d *Database) GetSubAccounts(walletID uuid.UUID) ([]SubAccount, error) {
	var subs []SubAccount
	err := d.db.Where("wallet_id = ?", walletID).Order("created_at ASC").Find(&subs).Error
	return subs, err
}
