package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
	"github.com/NTitterton/agorusta/internal/repository/mocks"
	"github.com/NTitterton/agorusta/internal/service"
)

type serverFixture struct {
	serverRepo  *mocks.ServerRepository
	channelRepo *mocks.ChannelRepository
	memberRepo  *mocks.MemberRepository
	svc         *service.ServerService
}

func newServerFixture() *serverFixture {
	f := &serverFixture{
		serverRepo:  new(mocks.ServerRepository),
		channelRepo: new(mocks.ChannelRepository),
		memberRepo:  new(mocks.MemberRepository),
	}
	f.svc = service.NewServerService(f.serverRepo, f.channelRepo, f.memberRepo)
	return f
}

func TestServerService_CreateServer_BootstrapsDefaults(t *testing.T) {
	// Arrange
	f := newServerFixture()
	ctx := context.Background()

	f.serverRepo.On("Save", ctx, mock.MatchedBy(func(s *domain.Server) bool {
		return s.Name == "Gopher Hangout" && s.OwnerID == "owner-1" && s.ID != ""
	})).Return(nil).Once()
	f.channelRepo.On("Save", ctx, mock.MatchedBy(func(c *domain.Channel) bool {
		assert.Equal(t, "general", c.Name, "建服应自带 general 频道")
		assert.Equal(t, domain.ChannelTypeText, c.ChannelType)
		return true
	})).Return(nil).Once()
	f.memberRepo.On("Save", ctx, mock.MatchedBy(func(m *domain.Member) bool {
		return m.UserID == "owner-1" && m.Role == domain.RoleOwner && m.Username == "alice"
	})).Return(nil).Once()

	// Act
	detail, err := f.svc.CreateServer(ctx, "owner-1", "alice", "  Gopher Hangout  ")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, int64(1), detail.MemberCount)
	require.Len(t, detail.Channels, 1)
	f.serverRepo.AssertExpectations(t)
	f.channelRepo.AssertExpectations(t)
	f.memberRepo.AssertExpectations(t)
}

func TestServerService_GetServer_RequiresMembership(t *testing.T) {
	// Arrange
	f := newServerFixture()
	ctx := context.Background()
	f.serverRepo.On("FindByID", ctx, "srv-1").
		Return(&domain.Server{ID: "srv-1", Name: "Gopher Hangout"}, nil).Once()
	f.memberRepo.On("Find", ctx, "srv-1", "stranger").
		Return(nil, repository.ErrNotFound).Once()

	// Act
	_, err := f.svc.GetServer(ctx, "srv-1", "stranger")

	// Assert
	assert.ErrorIs(t, err, service.ErrNotMember)
}

func TestServerService_GetServer_NotFound(t *testing.T) {
	f := newServerFixture()
	ctx := context.Background()
	f.serverRepo.On("FindByID", ctx, "missing").
		Return(nil, repository.ErrNotFound).Once()

	_, err := f.svc.GetServer(ctx, "missing", "user-1")
	assert.ErrorIs(t, err, service.ErrServerNotFound)
}

func TestServerService_CreateChannel_NormalizesName(t *testing.T) {
	// Arrange
	f := newServerFixture()
	ctx := context.Background()
	f.memberRepo.On("Find", ctx, "srv-1", "owner-1").
		Return(&domain.Member{ServerID: "srv-1", UserID: "owner-1", Role: domain.RoleOwner}, nil).Once()
	f.channelRepo.On("Save", ctx, mock.MatchedBy(func(c *domain.Channel) bool {
		return c.Name == "off-topic-chat" && c.ChannelType == domain.ChannelTypeText
	})).Return(nil).Once()

	// Act
	channel, err := f.svc.CreateChannel(ctx, "srv-1", "owner-1", "  Off Topic   Chat ", "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "off-topic-chat", channel.Name)
	f.channelRepo.AssertExpectations(t)
}

func TestServerService_CreateChannel_MemberForbidden(t *testing.T) {
	// Arrange: 普通成员不能建频道
	f := newServerFixture()
	ctx := context.Background()
	f.memberRepo.On("Find", ctx, "srv-1", "member-1").
		Return(&domain.Member{ServerID: "srv-1", UserID: "member-1", Role: domain.RoleMember}, nil).Once()

	// Act
	_, err := f.svc.CreateChannel(ctx, "srv-1", "member-1", "plans", "text")

	// Assert
	assert.ErrorIs(t, err, service.ErrForbidden)
	f.channelRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestServerService_ListUserServers(t *testing.T) {
	// Arrange
	f := newServerFixture()
	ctx := context.Background()
	f.memberRepo.On("ListByUser", ctx, "user-1").Return([]domain.Member{
		{ServerID: "srv-1", UserID: "user-1"},
		{ServerID: "srv-2", UserID: "user-1"},
	}, nil).Once()
	f.serverRepo.On("FindByIDs", ctx, []string{"srv-1", "srv-2"}).Return([]domain.Server{
		{ID: "srv-1"}, {ID: "srv-2"},
	}, nil).Once()

	// Act
	servers, err := f.svc.ListUserServers(ctx, "user-1")

	// Assert
	require.NoError(t, err)
	assert.Len(t, servers, 2)
}

func TestNormalizeChannelName(t *testing.T) {
	cases := map[string]string{
		"General":           "general",
		"  Off Topic  ":     "off-topic",
		"dev talk\tstuff":   "dev-talk-stuff",
		"already-fine":      "already-fine",
	}
	for in, want := range cases {
		assert.Equal(t, want, service.NormalizeChannelName(in), "input=%q", in)
	}
}
