package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/BearBump/ParcelView/internal/broker/messages"
	"github.com/BearBump/ParcelView/internal/integrations/carrier"
	trackermocks "github.com/BearBump/ParcelView/internal/services/tracker/mocks"
)

const deliveredPayload = `{
  "header": {"referenceNo": "R1", "currentStatusDescription": "Delivered", "originCity": "Delhi", "originPincode": "110001"},
  "milestones": [{"mileName": "Delivered", "mileStatus": "A", "mileLocationName": "Mumbai"}],
  "statuses": []
}`

type ServiceSuite struct {
	suite.Suite

	upstream *trackermocks.MockUpstream
	limiter  *trackermocks.MockRateLimiter
	history  *trackermocks.MockHistory
	recent   *trackermocks.MockRecentStore
	pub      *trackermocks.MockPublisher
	svc      *Service
	now      time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.upstream = &trackermocks.MockUpstream{}
	s.limiter = &trackermocks.MockRateLimiter{}
	s.history = &trackermocks.MockHistory{}
	s.recent = &trackermocks.MockRecentStore{}
	s.pub = &trackermocks.MockPublisher{}
	s.svc = New(s.upstream, Deps{
		Limiter:   s.limiter,
		History:   s.history,
		Recent:    s.recent,
		Publisher: s.pub,
	})
	s.now = time.Date(2025, 11, 7, 10, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time { return s.now }
}

func (s *ServiceSuite) TestTrack_OK_RecordsAndPublishes() {
	s.limiter.On("Allow", mock.Anything, "client:c1").Return(true, int64(1), nil).Once()
	s.upstream.On("Fetch", mock.Anything, "D12345678").Return([]byte(deliveredPayload), nil).Once()
	s.history.On("Add", mock.Anything, "c1", "D12345678").Return(nil).Once()
	s.pub.On("Publish", mock.Anything, messages.TopicTrackingLookedUp, []byte("D12345678"), mock.MatchedBy(func(b []byte) bool {
		var m messages.TrackingLookedUp
		if json.Unmarshal(b, &m) != nil {
			return false
		}
		return m.TrackingNumber == "D12345678" && m.Status == "Delivered" && m.IsDelivered &&
			m.TrackedAt.Equal(s.now) && len(m.Response) > 0
	})).Return(nil).Once()

	info, err := s.svc.Track(context.Background(), "c1", "  D12345678 ")
	s.Require().NoError(err)
	s.Require().Equal("D12345678", info.TrackingNumber)
	s.Require().Equal("R1", info.ReferenceNo)
	s.Require().Equal("Delhi (110001)", info.Origin)
	s.Require().True(info.IsDelivered)

	s.upstream.AssertExpectations(s.T())
	s.history.AssertExpectations(s.T())
	s.pub.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestTrack_InvalidNumber_NoUpstream() {
	for _, in := range []string{"", "   ", "1234567", "ABCDEFGHIJ12345678901", "ABC-12345"} {
		_, err := s.svc.Track(context.Background(), "c1", in)
		s.Require().ErrorIs(err, ErrInvalidTrackingNumber, in)
	}
	s.upstream.AssertNotCalled(s.T(), "Fetch", mock.Anything, mock.Anything)
	s.limiter.AssertNotCalled(s.T(), "Allow", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestTrack_RateLimited_NoUpstream() {
	s.limiter.On("Allow", mock.Anything, "client:c1").Return(false, int64(31), nil).Once()

	_, err := s.svc.Track(context.Background(), "c1", "D12345678")
	s.Require().ErrorIs(err, carrier.ErrRateLimited)
	s.Require().Equal("Too many requests. Please try again later", UserMessage(err))
	s.upstream.AssertNotCalled(s.T(), "Fetch", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestTrack_LimiterDown_FailsOpen() {
	s.limiter.On("Allow", mock.Anything, "client:c1").Return(false, int64(0), errors.New("redis down")).Once()
	s.upstream.On("Fetch", mock.Anything, "D12345678").Return([]byte(deliveredPayload), nil).Once()
	s.history.On("Add", mock.Anything, "c1", "D12345678").Return(nil).Once()
	s.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := s.svc.Track(context.Background(), "c1", "D12345678")
	s.Require().NoError(err)
	s.upstream.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestTrack_UpstreamErrorPropagates_NoSideEffects() {
	s.limiter.On("Allow", mock.Anything, "client:c1").Return(true, int64(1), nil).Once()
	s.upstream.On("Fetch", mock.Anything, "D12345678").
		Return([]byte(nil), &carrier.HTTPError{StatusCode: 404}).
		Once()

	_, err := s.svc.Track(context.Background(), "c1", "D12345678")
	s.Require().ErrorIs(err, carrier.ErrNotFound)
	s.history.AssertNotCalled(s.T(), "Add", mock.Anything, mock.Anything, mock.Anything)
	s.pub.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.upstream.AssertNumberOfCalls(s.T(), "Fetch", 1)
}

func (s *ServiceSuite) TestTrack_MalformedBody() {
	s.limiter.On("Allow", mock.Anything, "client:c1").Return(true, int64(1), nil).Once()
	s.upstream.On("Fetch", mock.Anything, "D12345678").Return([]byte("<html>"), nil).Once()

	_, err := s.svc.Track(context.Background(), "c1", "D12345678")
	s.Require().ErrorIs(err, ErrMalformedResponse)
	s.Require().Equal("Failed to parse response", UserMessage(err))
	s.history.AssertNotCalled(s.T(), "Add", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestTrack_SideEffectFailuresIgnored() {
	s.limiter.On("Allow", mock.Anything, "client:c1").Return(true, int64(1), nil).Once()
	s.upstream.On("Fetch", mock.Anything, "D12345678").Return([]byte(deliveredPayload), nil).Once()
	s.history.On("Add", mock.Anything, "c1", "D12345678").Return(errors.New("redis down")).Once()
	s.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

	info, err := s.svc.Track(context.Background(), "c1", "D12345678")
	s.Require().NoError(err)
	s.Require().Equal("Delivered", info.Status)
}

func (s *ServiceSuite) TestTrack_NoClient_SkipsHistory_LimitsByAddr() {
	s.limiter.On("Allow", mock.Anything, "addr:203.0.113.7").Return(true, int64(1), nil).Once()
	s.upstream.On("Fetch", mock.Anything, "D12345678").Return([]byte(deliveredPayload), nil).Once()
	s.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	ctx := WithCallerAddr(context.Background(), "203.0.113.7")
	_, err := s.svc.Track(ctx, "", "D12345678")
	s.Require().NoError(err)
	s.history.AssertNotCalled(s.T(), "Add", mock.Anything, mock.Anything, mock.Anything)
	s.limiter.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestTrack_ClientIDWinsOverAddr() {
	s.limiter.On("Allow", mock.Anything, "client:c1").Return(false, int64(31), nil).Once()

	ctx := WithCallerAddr(context.Background(), "203.0.113.7")
	_, err := s.svc.Track(ctx, "c1", "D12345678")
	s.Require().ErrorIs(err, carrier.ErrRateLimited)
	s.limiter.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestTrack_NoClientNoAddr_SharedWindow() {
	s.limiter.On("Allow", mock.Anything, "anonymous").Return(false, int64(31), nil).Once()

	_, err := s.svc.Track(context.Background(), "", "D12345678")
	s.Require().ErrorIs(err, carrier.ErrRateLimited)
	s.upstream.AssertNotCalled(s.T(), "Fetch", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestRecentSearches_Limits() {
	s.recent.On("RecentTrackingNumbers", mock.Anything, DefaultRecentLimit).Return([]string{"A"}, nil).Once()
	s.recent.On("RecentTrackingNumbers", mock.Anything, MaxRecentLimit).Return([]string(nil), nil).Once()
	s.recent.On("RecentTrackingNumbers", mock.Anything, 3).Return([]string{"A", "B"}, nil).Once()

	out, err := s.svc.RecentSearches(context.Background(), 0)
	s.Require().NoError(err)
	s.Require().Equal([]string{"A"}, out)

	out, err = s.svc.RecentSearches(context.Background(), 1000)
	s.Require().NoError(err)
	s.Require().NotNil(out)
	s.Require().Empty(out)

	out, err = s.svc.RecentSearches(context.Background(), 3)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.recent.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestRecentSearches_Error() {
	want := errors.New("db down")
	s.recent.On("RecentTrackingNumbers", mock.Anything, DefaultRecentLimit).Return([]string(nil), want).Once()

	_, err := s.svc.RecentSearches(context.Background(), 0)
	s.Require().ErrorIs(err, want)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
