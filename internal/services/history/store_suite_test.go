package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	cachemocks "github.com/BearBump/ParcelView/internal/cache/mocks"
	"github.com/BearBump/ParcelView/internal/models"
)

type StoreSuite struct {
	suite.Suite

	kv    *cachemocks.MockKV
	store *Store
	now   time.Time
}

func (s *StoreSuite) SetupTest() {
	s.kv = &cachemocks.MockKV{}
	s.store = New(s.kv)
	s.now = time.Date(2025, 11, 7, 10, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return s.now }
}

func (s *StoreSuite) TestHasConsent_GetError() {
	want := errors.New("redis down")
	s.kv.On("Get", mock.Anything, "pv:consent:c1").Return([]byte(nil), false, want).Once()

	_, err := s.store.HasConsent(context.Background(), "c1")
	s.Require().ErrorIs(err, want)
}

func (s *StoreSuite) TestHasConsent_OnlyTrueCounts() {
	s.kv.On("Get", mock.Anything, "pv:consent:c1").Return([]byte("false"), true, nil).Once()

	ok, err := s.store.HasConsent(context.Background(), "c1")
	s.Require().NoError(err)
	s.Require().False(ok)
}

func (s *StoreSuite) TestAdd_WithoutConsent_NoWrites() {
	s.kv.On("Get", mock.Anything, "pv:consent:c1").Return([]byte(nil), false, nil).Once()

	s.Require().NoError(s.store.Add(context.Background(), "c1", "D11111111"))
	s.kv.AssertNotCalled(s.T(), "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.kv.AssertExpectations(s.T())
}

func (s *StoreSuite) TestAdd_PrependsWithTimestampAndTTL() {
	prev, _ := json.Marshal([]models.HistoryEntry{{TrackingNumber: "D22222222", Timestamp: s.now.Add(-time.Hour)}})
	s.kv.On("Get", mock.Anything, "pv:consent:c1").Return([]byte("true"), true, nil).Once()
	s.kv.On("Get", mock.Anything, "pv:history:c1").Return(prev, true, nil).Once()
	s.kv.On("Set", mock.Anything, "pv:history:c1", mock.MatchedBy(func(b []byte) bool {
		var got []models.HistoryEntry
		if json.Unmarshal(b, &got) != nil || len(got) != 2 {
			return false
		}
		return got[0].TrackingNumber == "D11111111" && got[0].Timestamp.Equal(s.now) &&
			got[1].TrackingNumber == "D22222222"
	}), HistoryTTL).Return(nil).Once()

	s.Require().NoError(s.store.Add(context.Background(), "c1", "D11111111"))
	s.kv.AssertExpectations(s.T())
}

func (s *StoreSuite) TestAdd_SetErrorPropagates() {
	want := errors.New("set failed")
	s.kv.On("Get", mock.Anything, "pv:consent:c1").Return([]byte("true"), true, nil).Once()
	s.kv.On("Get", mock.Anything, "pv:history:c1").Return([]byte(nil), false, nil).Once()
	s.kv.On("Set", mock.Anything, "pv:history:c1", mock.Anything, HistoryTTL).Return(want).Once()

	err := s.store.Add(context.Background(), "c1", "D11111111")
	s.Require().ErrorIs(err, want)
}

func (s *StoreSuite) TestSetConsent_Revoke_DeletesBoth() {
	s.kv.On("Del", mock.Anything, "pv:consent:c1").Return(nil).Once()
	s.kv.On("Del", mock.Anything, "pv:history:c1").Return(nil).Once()

	s.Require().NoError(s.store.SetConsent(context.Background(), "c1", false))
	s.kv.AssertExpectations(s.T())
}

func (s *StoreSuite) TestSetConsent_Grant() {
	s.kv.On("Set", mock.Anything, "pv:consent:c1", []byte("true"), ConsentTTL).Return(nil).Once()

	s.Require().NoError(s.store.SetConsent(context.Background(), "c1", true))
	s.kv.AssertExpectations(s.T())
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
