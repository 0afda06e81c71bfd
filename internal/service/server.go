package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

// ServerDetail 聚合服务器、频道列表与成员数，供详情接口返回。
type ServerDetail struct {
	Server      domain.Server    `json:"server"`
	Channels    []domain.Channel `json:"channels"`
	MemberCount int64            `json:"member_count"`
}

var channelNamePattern = regexp.MustCompile(`^[a-z0-9-]{1,100}$`)

// ServerService 负责服务器、频道与成员管理。
type ServerService struct {
	serverRepo  repository.ServerRepository
	channelRepo repository.ChannelRepository
	memberRepo  repository.MemberRepository
}

func NewServerService(
	serverRepo repository.ServerRepository,
	channelRepo repository.ChannelRepository,
	memberRepo repository.MemberRepository,
) *ServerService {
	if serverRepo == nil || channelRepo == nil || memberRepo == nil {
		panic("NewServerService: nil repository")
	}
	return &ServerService{
		serverRepo:  serverRepo,
		channelRepo: channelRepo,
		memberRepo:  memberRepo,
	}
}

// CreateServer 创建服务器，同时建立默认 general 频道并把创建者记为 owner。
func (s *ServerService) CreateServer(ctx context.Context, ownerID, ownerName, name string) (*ServerDetail, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation": "CreateServer",
		"owner_id":  ownerID,
	})

	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidInput
	}

	server := &domain.Server{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: ownerID,
	}
	if err := s.serverRepo.Save(ctx, server); err != nil {
		logCtx.WithError(err).Error("Failed to save server")
		return nil, ErrInternalServer
	}

	general := &domain.Channel{
		ID:          uuid.NewString(),
		ServerID:    server.ID,
		Name:        "general",
		ChannelType: domain.ChannelTypeText,
	}
	if err := s.channelRepo.Save(ctx, general); err != nil {
		logCtx.WithError(err).Error("Failed to create default channel")
		return nil, ErrInternalServer
	}

	owner := &domain.Member{
		ServerID: server.ID,
		UserID:   ownerID,
		Username: ownerName,
		Role:     domain.RoleOwner,
	}
	if err := s.memberRepo.Save(ctx, owner); err != nil {
		logCtx.WithError(err).Error("Failed to save owner membership")
		return nil, ErrInternalServer
	}

	logCtx.WithField("server_id", server.ID).Info("Server created")
	return &ServerDetail{
		Server:      *server,
		Channels:    []domain.Channel{*general},
		MemberCount: 1,
	}, nil
}

// ListUserServers 列出用户加入的全部服务器。
func (s *ServerService) ListUserServers(ctx context.Context, userID string) ([]domain.Server, error) {
	members, err := s.memberRepo.ListByUser(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list memberships")
		return nil, ErrInternalServer
	}
	if len(members) == 0 {
		return []domain.Server{}, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ServerID)
	}
	servers, err := s.serverRepo.FindByIDs(ctx, ids)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to load servers")
		return nil, ErrInternalServer
	}
	return servers, nil
}

// GetServer 返回服务器详情；调用者必须是成员。
func (s *ServerService) GetServer(ctx context.Context, serverID, userID string) (*ServerDetail, error) {
	server, err := s.requireMembership(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}

	channels, err := s.channelRepo.ListByServer(ctx, serverID)
	if err != nil {
		logrus.WithError(err).WithField("server_id", serverID).Error("Failed to list channels")
		return nil, ErrInternalServer
	}
	count, err := s.memberRepo.CountByServer(ctx, serverID)
	if err != nil {
		logrus.WithError(err).WithField("server_id", serverID).Error("Failed to count members")
		return nil, ErrInternalServer
	}

	return &ServerDetail{Server: *server, Channels: channels, MemberCount: count}, nil
}

// CreateChannel 在服务器下新建频道；仅 owner/admin 可操作。
// 频道名统一转小写并把空格折叠成连字符。
func (s *ServerService) CreateChannel(ctx context.Context, serverID, userID, name, channelType string) (*domain.Channel, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation": "CreateChannel",
		"server_id": serverID,
		"user_id":   userID,
	})

	member, err := s.findMember(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != domain.RoleOwner && member.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	name = NormalizeChannelName(name)
	if !channelNamePattern.MatchString(name) {
		return nil, ErrInvalidInput
	}
	if channelType == "" {
		channelType = domain.ChannelTypeText
	}
	if channelType != domain.ChannelTypeText && channelType != domain.ChannelTypeVoice {
		return nil, ErrInvalidInput
	}

	channel := &domain.Channel{
		ID:          uuid.NewString(),
		ServerID:    serverID,
		Name:        name,
		ChannelType: channelType,
	}
	if err := s.channelRepo.Save(ctx, channel); err != nil {
		logCtx.WithError(err).Error("Failed to save channel")
		return nil, ErrInternalServer
	}

	logCtx.WithField("channel_id", channel.ID).Info("Channel created")
	return channel, nil
}

// ListChannels 列出服务器的全部频道；调用者必须是成员。
func (s *ServerService) ListChannels(ctx context.Context, serverID, userID string) ([]domain.Channel, error) {
	if _, err := s.requireMembership(ctx, serverID, userID); err != nil {
		return nil, err
	}
	channels, err := s.channelRepo.ListByServer(ctx, serverID)
	if err != nil {
		logrus.WithError(err).WithField("server_id", serverID).Error("Failed to list channels")
		return nil, ErrInternalServer
	}
	return channels, nil
}

// ListMembers 列出服务器成员；调用者必须是成员。
func (s *ServerService) ListMembers(ctx context.Context, serverID, userID string) ([]domain.Member, error) {
	if _, err := s.requireMembership(ctx, serverID, userID); err != nil {
		return nil, err
	}
	members, err := s.memberRepo.ListByServer(ctx, serverID)
	if err != nil {
		logrus.WithError(err).WithField("server_id", serverID).Error("Failed to list members")
		return nil, ErrInternalServer
	}
	return members, nil
}

// requireMembership 确认服务器存在且调用者是成员，返回服务器实体。
func (s *ServerService) requireMembership(ctx context.Context, serverID, userID string) (*domain.Server, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServerNotFound
		}
		logrus.WithError(err).WithField("server_id", serverID).Error("Failed to query server")
		return nil, ErrInternalServer
	}
	if _, err := s.findMember(ctx, serverID, userID); err != nil {
		return nil, err
	}
	return server, nil
}

func (s *ServerService) findMember(ctx context.Context, serverID, userID string) (*domain.Member, error) {
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
	return member, nil
}

// NormalizeChannelName 按展示惯例规整频道名：去首尾空白、转小写、空格折叠为连字符。
func NormalizeChannelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "-")
}
