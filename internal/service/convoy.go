package service

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"convoy_web/internal/models"
	"convoy_web/internal/repository"
)

const inviteCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const inviteCodeLength = 6

type ConvoyService struct {
	convoyRepo repository.ConvoyRepository
}

func NewConvoyService(convoyRepo repository.ConvoyRepository) *ConvoyService {
	return &ConvoyService{convoyRepo: convoyRepo}
}

// CreateConvoy 建立新車隊並把建立者加入為隊長
// 邀請碼必須唯一，碰撞時重新生成
func (s *ConvoyService) CreateConvoy(name, destinationName string, destLat, destLon *float64, startTime *time.Time, creatorID uint) (*models.Convoy, error) {
	code, err := s.uniqueInviteCode()
	if err != nil {
		return nil, err
	}

	convoy := &models.Convoy{
		Name:            name,
		InviteCode:      code,
		DestinationName: destinationName,
		DestinationLat:  destLat,
		DestinationLon:  destLon,
		StartTime:       startTime,
	}
	if err := s.convoyRepo.Create(convoy); err != nil {
		return nil, err
	}

	member := &models.ConvoyMember{
		ConvoyID: convoy.ID,
		UserID:   creatorID,
		Role:     models.RoleLeader,
	}
	if err := s.convoyRepo.AddMember(member); err != nil {
		return nil, err
	}

	return s.convoyRepo.FindByID(convoy.ID)
}

// JoinByInviteCode 通過邀請碼加入車隊
// 已經是成員時直接返回車隊，不重複加入
func (s *ConvoyService) JoinByInviteCode(code string, userID uint) (*models.Convoy, error) {
	convoy, err := s.convoyRepo.FindByInviteCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("車隊不存在")
		}
		return nil, err
	}

	exists, err := s.convoyRepo.HasMember(convoy.ID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return convoy, nil
	}

	member := &models.ConvoyMember{
		ConvoyID: convoy.ID,
		UserID:   userID,
		Role:     models.RoleMember,
	}
	if err := s.convoyRepo.AddMember(member); err != nil {
		return nil, err
	}

	return s.convoyRepo.FindByID(convoy.ID)
}

// MyConvoys 查詢用戶參加的所有車隊
func (s *ConvoyService) MyConvoys(userID uint) ([]models.Convoy, error) {
	return s.convoyRepo.FindByUserID(userID)
}

func (s *ConvoyService) GetConvoy(id uuid.UUID) (*models.Convoy, error) {
	return s.convoyRepo.FindByID(id)
}

// Destination 實現追蹤器的 DestinationResolver 接口
// ok 為 false 表示車隊不存在或尚未設置目的地
func (s *ConvoyService) Destination(convoyID string) (float64, float64, bool, error) {
	id, err := uuid.Parse(convoyID)
	if err != nil {
		return 0, 0, false, err
	}

	convoy, err := s.convoyRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}

	if convoy.DestinationLat == nil || convoy.DestinationLon == nil {
		return 0, 0, false, nil
	}
	return *convoy.DestinationLat, *convoy.DestinationLon, true, nil
}

// uniqueInviteCode 生成未被使用的邀請碼
func (s *ConvoyService) uniqueInviteCode() (string, error) {
	for {
		code, err := generateInviteCode(inviteCodeLength)
		if err != nil {
			return "", err
		}
		_, err = s.convoyRepo.FindByInviteCode(code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
		// 碰撞，重新生成
	}
}

func generateInviteCode(length int) (string, error) {
	code := make([]byte, length)
	max := big.NewInt(int64(len(inviteCodeChars)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = inviteCodeChars[n.Int64()]
	}
	return string(code), nil
}
