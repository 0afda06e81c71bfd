package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

// 邀请码字母表去掉了易混淆字符（I l 1 O 0 o）。
const (
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	inviteCodeLength   = 8
	inviteCodeRetries  = 5

	serverPasswordMinLength = 4
)

// InviteService 负责邀请码的签发、查询与兑换，
// 以及第二条入驻路径：服务器共享口令。
type InviteService struct {
	inviteRepo   repository.InviteRepository
	serverRepo   repository.ServerRepository
	channelRepo  repository.ChannelRepository
	memberRepo   repository.MemberRepository
	passwordRepo repository.ServerPasswordRepository
	now          func() time.Time
}

func NewInviteService(
	inviteRepo repository.InviteRepository,
	serverRepo repository.ServerRepository,
	channelRepo repository.ChannelRepository,
	memberRepo repository.MemberRepository,
	passwordRepo repository.ServerPasswordRepository,
) *InviteService {
	if inviteRepo == nil || serverRepo == nil || channelRepo == nil || memberRepo == nil || passwordRepo == nil {
		panic("NewInviteService: nil repository")
	}
	return &InviteService{
		inviteRepo:   inviteRepo,
		serverRepo:   serverRepo,
		channelRepo:  channelRepo,
		memberRepo:   memberRepo,
		passwordRepo: passwordRepo,
		now:          time.Now,
	}
}

// CreateInvite 为服务器签发邀请码；仅 owner/admin 可操作。
// expiresInHours/maxUses 为 nil 表示不限。
func (s *InviteService) CreateInvite(ctx context.Context, serverID, userID string, expiresInHours *int, maxUses *int) (*domain.Invite, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation": "CreateInvite",
		"server_id": serverID,
		"user_id":   userID,
	})

	server, err := s.requirePrivileged(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if expiresInHours != nil && *expiresInHours <= 0 {
		return nil, ErrInvalidInput
	}
	if maxUses != nil && *maxUses <= 0 {
		return nil, ErrInvalidInput
	}

	var expiresAt *int64
	if expiresInHours != nil {
		ts := s.now().Add(time.Duration(*expiresInHours) * time.Hour).UnixMilli()
		expiresAt = &ts
	}

	// 条件插入保证唯一性：撞码时换一个重试，次数封顶。
	for attempt := 0; attempt < inviteCodeRetries; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			logCtx.WithError(err).Error("Failed to generate invite code")
			return nil, ErrInternalServer
		}
		invite := &domain.Invite{
			Code:       code,
			ServerID:   serverID,
			ServerName: server.Name,
			CreatedBy:  userID,
			ExpiresAt:  expiresAt,
			MaxUses:    maxUses,
			CreatedAt:  s.now().UnixMilli(),
		}
		err = s.inviteRepo.Create(ctx, invite)
		if err == nil {
			logCtx.WithField("code", code).Info("Invite created")
			return invite, nil
		}
		if !errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Error("Failed to save invite")
			return nil, ErrInternalServer
		}
		logCtx.WithField("attempt", attempt+1).Warn("Invite code collision, retrying")
	}

	logCtx.Error("Exhausted invite code attempts")
	return nil, ErrInternalServer
}

// ListInvites 列出服务器仍可用的邀请码；仅 owner/admin 可见。
func (s *InviteService) ListInvites(ctx context.Context, serverID, userID string) ([]domain.Invite, error) {
	if _, err := s.requirePrivileged(ctx, serverID, userID); err != nil {
		return nil, err
	}
	invites, err := s.inviteRepo.ListByServer(ctx, serverID)
	if err != nil {
		logrus.WithError(err).WithField("server_id", serverID).Error("Failed to list invites")
		return nil, ErrInternalServer
	}

	now := s.now().UnixMilli()
	usable := make([]domain.Invite, 0, len(invites))
	for _, inv := range invites {
		if inv.Usable(now) {
			usable = append(usable, inv)
		}
	}
	return usable, nil
}

// RevokeInvite 撤销邀请码；仅 owner/admin 可操作。
// 属于其他服务器的 code 一律按不存在处理。
func (s *InviteService) RevokeInvite(ctx context.Context, serverID, userID, code string) error {
	if _, err := s.requirePrivileged(ctx, serverID, userID); err != nil {
		return err
	}

	invite, err := s.inviteRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInviteNotFound
		}
		logrus.WithError(err).WithField("code", code).Error("Failed to query invite")
		return ErrInternalServer
	}
	if invite.ServerID != serverID {
		return ErrInviteNotFound
	}

	if err := s.inviteRepo.Delete(ctx, code); err != nil {
		logrus.WithError(err).WithField("code", code).Error("Failed to delete invite")
		return ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"server_id": serverID, "code": code}).Info("Invite revoked")
	return nil
}

// GetInviteInfo 返回邀请码的公开预览（无需成员资格）。
func (s *InviteService) GetInviteInfo(ctx context.Context, code string) (*domain.InviteInfo, error) {
	invite, err := s.findUsable(ctx, code)
	if err != nil {
		return nil, err
	}

	memberCount, err := s.memberRepo.CountByServer(ctx, invite.ServerID)
	if err != nil {
		logrus.WithError(err).WithField("server_id", invite.ServerID).Error("Failed to count members")
		return nil, ErrInternalServer
	}

	return &domain.InviteInfo{
		Code:        invite.Code,
		ServerID:    invite.ServerID,
		ServerName:  invite.ServerName,
		MemberCount: memberCount,
	}, nil
}

// JoinByCode 兑换邀请码加入服务器。
// 有效性在兑换时重新校验；并发兑换可能让 use_count 略超上限，这是可接受的。
func (s *InviteService) JoinByCode(ctx context.Context, code, userID, username string) (*ServerDetail, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation": "JoinByCode",
		"user_id":   userID,
	})

	invite, err := s.findUsable(ctx, code)
	if err != nil {
		return nil, err
	}

	if _, err := s.memberRepo.Find(ctx, invite.ServerID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, repository.ErrNotFound) {
		logCtx.WithError(err).Error("Failed to query membership")
		return nil, ErrInternalServer
	}

	if err := s.inviteRepo.IncrementUseCount(ctx, code); err != nil {
		logCtx.WithError(err).WithField("code", code).Error("Failed to increment invite usage")
		return nil, ErrInternalServer
	}

	member := &domain.Member{
		ServerID: invite.ServerID,
		UserID:   userID,
		Username: username,
		Role:     domain.RoleMember,
	}
	if err := s.memberRepo.Save(ctx, member); err != nil {
		logCtx.WithError(err).Error("Failed to save membership")
		return nil, ErrInternalServer
	}

	logCtx.WithField("server_id", invite.ServerID).Info("User joined server via invite")
	return s.loadServerDetail(ctx, invite.ServerID)
}

// loadServerDetail 组装入驻成功后返回的服务器详情。
func (s *InviteService) loadServerDetail(ctx context.Context, serverID string) (*ServerDetail, error) {
	logCtx := logrus.WithField("server_id", serverID)

	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load joined server")
		return nil, ErrInternalServer
	}
	channels, err := s.channelRepo.ListByServer(ctx, serverID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list channels")
		return nil, ErrInternalServer
	}
	memberCount, err := s.memberRepo.CountByServer(ctx, serverID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to count members")
		return nil, ErrInternalServer
	}
	return &ServerDetail{Server: *server, Channels: channels, MemberCount: memberCount}, nil
}

// CreateServerPassword 为服务器创建共享加入口令；仅 owner 可操作。
// expiresInHours 为 nil 表示不过期。响应里永远不含口令明文或散列。
func (s *InviteService) CreateServerPassword(ctx context.Context, serverID, userID, password string, expiresInHours *int) (*domain.ServerPassword, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation": "CreateServerPassword",
		"server_id": serverID,
		"user_id":   userID,
	})

	if _, err := s.requireOwner(ctx, serverID, userID); err != nil {
		return nil, err
	}
	if len(password) < serverPasswordMinLength {
		return nil, ErrInvalidInput
	}
	if expiresInHours != nil && *expiresInHours <= 0 {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash server password")
		return nil, ErrInternalServer
	}

	var expiresAt *int64
	if expiresInHours != nil {
		ts := s.now().Add(time.Duration(*expiresInHours) * time.Hour).UnixMilli()
		expiresAt = &ts
	}

	record := &domain.ServerPassword{
		ID:           uuid.NewString(),
		ServerID:     serverID,
		PasswordHash: string(hash),
		CreatedBy:    userID,
		CreatedAt:    s.now().UnixMilli(),
		ExpiresAt:    expiresAt,
	}
	if err := s.passwordRepo.Create(ctx, record); err != nil {
		logCtx.WithError(err).Error("Failed to save server password")
		return nil, ErrInternalServer
	}

	logCtx.WithField("password_id", record.ID).Info("Server password created")
	return record, nil
}

// ListServerPasswords 列出服务器仍有效的口令记录；仅 owner 可见。
func (s *InviteService) ListServerPasswords(ctx context.Context, serverID, userID string) ([]domain.ServerPassword, error) {
	if _, err := s.requireOwner(ctx, serverID, userID); err != nil {
		return nil, err
	}
	passwords, err := s.passwordRepo.ListByServer(ctx, serverID)
	if err != nil {
		logrus.WithError(err).WithField("server_id", serverID).Error("Failed to list server passwords")
		return nil, ErrInternalServer
	}

	now := s.now().UnixMilli()
	active := make([]domain.ServerPassword, 0, len(passwords))
	for _, p := range passwords {
		if p.Active(now) {
			active = append(active, p)
		}
	}
	return active, nil
}

// DeleteServerPassword 删除口令记录；仅 owner 可操作。
// 属于其他服务器的记录一律按不存在处理。
func (s *InviteService) DeleteServerPassword(ctx context.Context, serverID, userID, passwordID string) error {
	if _, err := s.requireOwner(ctx, serverID, userID); err != nil {
		return err
	}

	record, err := s.passwordRepo.FindByID(ctx, passwordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPasswordNotFound
		}
		logrus.WithError(err).WithField("password_id", passwordID).Error("Failed to query server password")
		return ErrInternalServer
	}
	if record.ServerID != serverID {
		return ErrPasswordNotFound
	}

	if err := s.passwordRepo.Delete(ctx, passwordID); err != nil {
		logrus.WithError(err).WithField("password_id", passwordID).Error("Failed to delete server password")
		return ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"server_id": serverID, "password_id": passwordID}).Info("Server password deleted")
	return nil
}

// JoinByName 凭服务器名称 + 共享口令入驻。
// 名称不存在和口令不匹配返回同一个错误，不泄露服务器是否存在。
func (s *InviteService) JoinByName(ctx context.Context, serverName, password, userID, username string) (*ServerDetail, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation": "JoinByName",
		"user_id":   userID,
	})

	server, err := s.serverRepo.FindByName(ctx, serverName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthenticationFailed
		}
		logCtx.WithError(err).Error("Failed to query server by name")
		return nil, ErrInternalServer
	}

	if _, err := s.memberRepo.Find(ctx, server.ID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, repository.ErrNotFound) {
		logCtx.WithError(err).Error("Failed to query membership")
		return nil, ErrInternalServer
	}

	passwords, err := s.passwordRepo.ListByServer(ctx, server.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list server passwords")
		return nil, ErrInternalServer
	}

	now := s.now().UnixMilli()
	matched := false
	for i := range passwords {
		if !passwords[i].Active(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(passwords[i].PasswordHash), []byte(password)) == nil {
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrAuthenticationFailed
	}

	member := &domain.Member{
		ServerID: server.ID,
		UserID:   userID,
		Username: username,
		Role:     domain.RoleMember,
	}
	if err := s.memberRepo.Save(ctx, member); err != nil {
		logCtx.WithError(err).Error("Failed to save membership")
		return nil, ErrInternalServer
	}

	logCtx.WithField("server_id", server.ID).Info("User joined server via password")
	return s.loadServerDetail(ctx, server.ID)
}

// CleanupExpired 删除已过期的邀请码，由周期任务调用。
func (s *InviteService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.inviteRepo.DeleteExpired(ctx, s.now().UnixMilli())
	if err != nil {
		logrus.WithError(err).Error("Failed to clean up expired invites")
		return 0, err
	}
	if deleted > 0 {
		logrus.WithField("deleted", deleted).Info("Expired invites cleaned up")
	}
	return deleted, nil
}

// findUsable 查询邀请码并校验有效性，过期/用尽映射为各自的 410 级错误。
func (s *InviteService) findUsable(ctx context.Context, code string) (*domain.Invite, error) {
	invite, err := s.inviteRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInviteNotFound
		}
		logrus.WithError(err).WithField("code", code).Error("Failed to query invite")
		return nil, ErrInternalServer
	}

	now := s.now().UnixMilli()
	if invite.ExpiresAt != nil && *invite.ExpiresAt < now {
		return nil, ErrInviteExpired
	}
	if invite.MaxUses != nil && invite.UseCount >= *invite.MaxUses {
		return nil, ErrInviteExhausted
	}
	return invite, nil
}

// requirePrivileged 确认服务器存在且调用者是 owner 或 admin。
func (s *InviteService) requirePrivileged(ctx context.Context, serverID, userID string) (*domain.Server, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServerNotFound
		}
		logrus.WithError(err).WithField("server_id", serverID).Error("Failed to query server")
		return nil, ErrInternalServer
	}

	member, err := s.memberRepo.Find(ctx, serverID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotMember
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"server_id": serverID,
			"user_id":   userID,
		}).Error("Failed to query membership")
		return nil, ErrInternalServer
	}
	if member.Role != domain.RoleOwner && member.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return server, nil
}

// requireOwner 确认服务器存在且调用者是 owner。
// 口令是长期有效的入驻凭证，管理权限比邀请码收得更紧。
func (s *InviteService) requireOwner(ctx context.Context, serverID, userID string) (*domain.Server, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServerNotFound
		}
		logrus.WithError(err).WithField("server_id", serverID).Error("Failed to query server")
		return nil, ErrInternalServer
	}

	member, err := s.memberRepo.Find(ctx, serverID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotMember
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"server_id": serverID,
			"user_id":   userID,
		}).Error("Failed to query membership")
		return nil, ErrInternalServer
	}
	if member.Role != domain.RoleOwner {
		return nil, ErrForbidden
	}
	return server, nil
}

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	code := make([]byte, inviteCodeLength)
	for i, b := range buf {
		code[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(code), nil
}
