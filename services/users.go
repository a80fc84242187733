package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipcast/db"
	"clipcast/models"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountService - интерфейс к auth-коллаборатору: регистрация, выдача
// токенов и записи блокировок, которые читает ExclusionService.
type AccountService struct {
	db *db.Manager
}

func NewAccountService(manager *db.Manager) *AccountService {
	return &AccountService{db: manager}
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(stored, password string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(hash) == parts[1]
}

func newOpaqueID() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// Register создает зрителя с непрозрачным строковым id
func (as *AccountService) Register(ctx context.Context, nickname, password string) (*models.User, error) {
	if strings.TrimSpace(nickname) == "" || password == "" {
		return nil, errors.New("nickname or password is empty")
	}

	var alreadyExists int64
	err := as.db.Read(ctx).Model(&models.User{}).Where("nickname = ?", nickname).Count(&alreadyExists).Error
	if err != nil {
		return nil, wrapStoreErr("failed to check nickname", err)
	}
	if alreadyExists > 0 {
		return nil, errors.New("user already exists")
	}

	id, err := newOpaqueID()
	if err != nil {
		return nil, err
	}
	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:       id,
		Nickname: nickname,
		Password: passwordHash,
	}
	if err := as.db.Write(ctx).Create(&user).Error; err != nil {
		return nil, wrapStoreErr("failed to create user", err)
	}
	return &user, nil
}

// Login проверяет пароль и выдает новый токен, старые токены снимаются
func (as *AccountService) Login(ctx context.Context, nickname, password string) (string, *models.User, error) {
	var user models.User
	err := as.db.Read(ctx).Where("nickname = ?", nickname).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errors.New("invalid nickname")
		}
		return "", nil, wrapStoreErr("failed to load user", err)
	}
	if !verifyPassword(user.Password, password) {
		return "", nil, errors.New("invalid password")
	}

	if err := as.Logout(ctx, user.ID); err != nil {
		return "", nil, err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, err
	}
	token := hex.EncodeToString(tokenBytes)

	err = as.db.Write(ctx).Create(&models.UserTokens{
		UserID: user.ID,
		Token:  token,
	}).Error
	if err != nil {
		return "", nil, wrapStoreErr("failed to store token", err)
	}
	return token, &user, nil
}

func (as *AccountService) Logout(ctx context.Context, userID string) error {
	err := as.db.Write(ctx).Where("user_id = ?", userID).Delete(&models.UserTokens{}).Error
	if err != nil {
		return wrapStoreErr("failed to delete tokens", err)
	}
	return nil
}

// ResolveToken возвращает id зрителя по токену сессии
func (as *AccountService) ResolveToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.New("token is empty")
	}
	var row models.UserTokens
	err := as.db.Read(ctx).Where("token = ?", token).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.New("unknown token")
		}
		return "", wrapStoreErr("failed to resolve token", err)
	}
	return row.UserID, nil
}

// BlockUser создает направленную запись блокировки. Повторная
// блокировка той же пары - no-op через конфликт на уникальном индексе.
func (as *AccountService) BlockUser(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == "" || blockedID == "" {
		return ErrInvalidViewer
	}
	if blockerID == blockedID {
		return fmt.Errorf("cannot block yourself")
	}

	var count int64
	err := as.db.Read(ctx).Model(&models.User{}).Where("id IN ?", []string{blockerID, blockedID}).Count(&count).Error
	if err != nil {
		return wrapStoreErr("failed to check users", err)
	}
	if count != 2 {
		return fmt.Errorf("one or both users do not exist")
	}

	block := models.Block{
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: time.Now(),
	}
	err = as.db.Write(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blocker_id"}, {Name: "blocked_id"}},
		DoNothing: true,
	}).Create(&block).Error
	if err != nil {
		return wrapStoreErr("failed to create block", err)
	}
	return nil
}

func (as *AccountService) UnblockUser(ctx context.Context, blockerID, blockedID string) error {
	err := as.db.Write(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
	if err != nil {
		return wrapStoreErr("failed to delete block", err)
	}
	return nil
}
