package service_test

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"convoy_web/internal/models"
	"convoy_web/internal/service"
)

// fakeConvoyRepo 是 repository.ConvoyRepository 的記憶體實現
type fakeConvoyRepo struct {
	convoys map[uuid.UUID]*models.Convoy
	members []models.ConvoyMember
}

func newFakeConvoyRepo() *fakeConvoyRepo {
	return &fakeConvoyRepo{convoys: make(map[uuid.UUID]*models.Convoy)}
}

func (r *fakeConvoyRepo) Create(convoy *models.Convoy) error {
	if convoy.ID == uuid.Nil {
		convoy.ID = uuid.New()
	}
	r.convoys[convoy.ID] = convoy
	return nil
}

func (r *fakeConvoyRepo) FindByID(id uuid.UUID) (*models.Convoy, error) {
	convoy, ok := r.convoys[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return convoy, nil
}

func (r *fakeConvoyRepo) FindByInviteCode(code string) (*models.Convoy, error) {
	for _, convoy := range r.convoys {
		if convoy.InviteCode == code {
			return convoy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeConvoyRepo) FindByUserID(userID uint) ([]models.Convoy, error) {
	var result []models.Convoy
	for _, m := range r.members {
		if m.UserID == userID {
			if convoy, ok := r.convoys[m.ConvoyID]; ok {
				result = append(result, *convoy)
			}
		}
	}
	return result, nil
}

func (r *fakeConvoyRepo) AddMember(member *models.ConvoyMember) error {
	r.members = append(r.members, *member)
	return nil
}

func (r *fakeConvoyRepo) HasMember(convoyID uuid.UUID, userID uint) (bool, error) {
	for _, m := range r.members {
		if m.ConvoyID == convoyID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func TestCreateConvoyGeneratesInviteCodeAndLeader(t *testing.T) {
	repo := newFakeConvoyRepo()
	svc := service.NewConvoyService(repo)

	lat, lon := 48.137, 11.575
	convoy, err := svc.CreateConvoy("慕尼黑之旅", "Marienplatz", &lat, &lon, nil, 7)
	require.NoError(t, err)

	require.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), convoy.InviteCode)
	require.Len(t, repo.members, 1)
	require.Equal(t, models.RoleLeader, repo.members[0].Role)
	require.Equal(t, uint(7), repo.members[0].UserID)
}

func TestJoinByInviteCode(t *testing.T) {
	repo := newFakeConvoyRepo()
	svc := service.NewConvoyService(repo)

	created, err := svc.CreateConvoy("trip", "", nil, nil, nil, 1)
	require.NoError(t, err)

	joined, err := svc.JoinByInviteCode(created.InviteCode, 2)
	require.NoError(t, err)
	require.Equal(t, created.ID, joined.ID)
	require.Len(t, repo.members, 2)
	require.Equal(t, models.RoleMember, repo.members[1].Role)

	// 已經是成員時不重複加入
	_, err = svc.JoinByInviteCode(created.InviteCode, 2)
	require.NoError(t, err)
	require.Len(t, repo.members, 2)

	// 不存在的邀請碼
	_, err = svc.JoinByInviteCode("ZZZZZZ", 3)
	require.Error(t, err)
}

func TestDestinationResolver(t *testing.T) {
	repo := newFakeConvoyRepo()
	svc := service.NewConvoyService(repo)

	lat, lon := 52.52, 13.405
	withDest, err := svc.CreateConvoy("berlin", "Brandenburger Tor", &lat, &lon, nil, 1)
	require.NoError(t, err)
	noDest, err := svc.CreateConvoy("nowhere", "", nil, nil, nil, 1)
	require.NoError(t, err)

	gotLat, gotLon, ok, err := svc.Destination(withDest.ID.String())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, lat, gotLat)
	require.Equal(t, lon, gotLon)

	// 未設置目的地
	_, _, ok, err = svc.Destination(noDest.ID.String())
	require.NoError(t, err)
	require.False(t, ok)

	// 不存在的車隊視為沒有目的地，而不是錯誤
	_, _, ok, err = svc.Destination(uuid.New().String())
	require.NoError(t, err)
	require.False(t, ok)

	// 非 UUID 的車隊 ID
	_, _, ok, err = svc.Destination("not-a-uuid")
	require.Error(t, err)
	require.False(t, ok)
}
