//go:build e2e

package offers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"rota-claims/internal/domain/staff"
	"rota-claims/internal/pkg/jwt"
	"rota-claims/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OfferFlowSuite struct {
	e2e.SharedSuite
}

func TestOfferFlowSuite(t *testing.T) {
	suite.Run(t, new(OfferFlowSuite))
}

func (s *OfferFlowSuite) managerToken() string {
	svc := jwt.NewService(s.Config.JWT.Secret, s.Config.JWT.Duration)
	token, err := svc.GenerateToken(uuid.New(), staff.RoleManager)
	s.Require().NoError(err)
	return token
}

func (s *OfferFlowSuite) staffToken(staffID uuid.UUID) string {
	svc := jwt.NewService(s.Config.JWT.Secret, s.Config.JWT.Duration)
	token, err := svc.GenerateToken(staffID, staff.RoleStaff)
	s.Require().NoError(err)
	return token
}

func (s *OfferFlowSuite) seedSite() uuid.UUID {
	siteID := uuid.New()
	_, err := s.DB.Exec(context.Background(),
		`INSERT INTO sites (id, name) VALUES ($1, $2)`, siteID, "The Crown")
	s.Require().NoError(err)
	return siteID
}

func (s *OfferFlowSuite) seedStaff(siteID uuid.UUID, n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		_, err := s.DB.Exec(context.Background(),
			`INSERT INTO staff (id, site_id, full_name, age_years, contract_type)
			 VALUES ($1, $2, $3, 30, 'irregular')`,
			ids[i], siteID, fmt.Sprintf("Staff %02d", i))
		s.Require().NoError(err)
	}
	return ids
}

func (s *OfferFlowSuite) do(method, url string, body any, token string, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, url, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func (s *OfferFlowSuite) publishShift(siteID uuid.UUID, token string) uuid.UUID {
	starts := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	w := s.do(http.MethodPost, "/api/sites/"+siteID.String()+"/shifts", map[string]any{
		"role":     "bartender",
		"startsAt": starts,
		"endsAt":   starts.Add(8 * time.Hour),
		"status":   "published",
	}, token, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

func (s *OfferFlowSuite) offerRecipient(offerID uuid.UUID) uuid.UUID {
	var recipientID uuid.UUID
	err := s.DB.QueryRow(context.Background(),
		`SELECT recipient_id FROM offers WHERE id = $1`, offerID).Scan(&recipientID)
	s.Require().NoError(err)
	return recipientID
}

type batchResponse struct {
	ShiftID        uuid.UUID   `json:"shiftId"`
	OfferIDs       []uuid.UUID `json:"offerIds"`
	RulesetVersion int32       `json:"rulesetVersion"`
}

type acceptResponse struct {
	Won           bool       `json:"won"`
	WinnerStaffID *uuid.UUID `json:"winnerStaffId"`
}

func (s *OfferFlowSuite) TestOfferLifecycle() {
	s.Run("issue, accept, and lose through the full stack", func() {
		token := s.managerToken()
		siteID := s.seedSite()
		s.seedStaff(siteID, 3)
		shiftID := s.publishShift(siteID, token)

		w := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 3}, token, nil)
		require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())

		var batch batchResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &batch))
		s.Require().Len(batch.OfferIDs, 3)

		// The recipient of the first offer claims the shift.
		winner := s.offerRecipient(batch.OfferIDs[0])
		w = s.do(http.MethodPost, "/api/offers/"+batch.OfferIDs[0].String()+"/accept",
			nil, s.staffToken(winner), nil)
		require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())

		var accepted acceptResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &accepted))
		s.True(accepted.Won)

		// A sibling recipient arrives late and learns who won.
		loser := s.offerRecipient(batch.OfferIDs[1])
		w = s.do(http.MethodPost, "/api/offers/"+batch.OfferIDs[1].String()+"/accept",
			nil, s.staffToken(loser), nil)
		require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())

		var lost acceptResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &lost))
		s.False(lost.Won)
		s.Require().NotNil(lost.WinnerStaffID)
		s.Equal(winner, *lost.WinnerStaffID)

		var assigned uuid.UUID
		var status string
		err := s.DB.QueryRow(context.Background(),
			`SELECT assigned_staff_id, status FROM shifts WHERE id = $1`, shiftID).
			Scan(&assigned, &status)
		s.Require().NoError(err)
		s.Equal(winner, assigned)
		s.Equal("filled", status)
	})

	s.Run("anonymous accept falls back to the body staff id", func() {
		token := s.managerToken()
		siteID := s.seedSite()
		s.seedStaff(siteID, 1)
		shiftID := s.publishShift(siteID, token)

		w := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 1}, token, nil)
		require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())

		var batch batchResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &batch))
		recipient := s.offerRecipient(batch.OfferIDs[0])

		w = s.do(http.MethodPost, "/api/offers/"+batch.OfferIDs[0].String()+"/accept",
			map[string]any{"staffId": recipient}, "", nil)
		require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())

		var accepted acceptResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &accepted))
		s.True(accepted.Won)
	})

	s.Run("wrong recipient is rejected", func() {
		token := s.managerToken()
		siteID := s.seedSite()
		staffIDs := s.seedStaff(siteID, 2)
		shiftID := s.publishShift(siteID, token)

		w := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 1}, token, nil)
		require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())

		var batch batchResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &batch))
		recipient := s.offerRecipient(batch.OfferIDs[0])

		var intruder uuid.UUID
		for _, id := range staffIDs {
			if id != recipient {
				intruder = id
				break
			}
		}

		w = s.do(http.MethodPost, "/api/offers/"+batch.OfferIDs[0].String()+"/accept",
			nil, s.staffToken(intruder), nil)
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *OfferFlowSuite) TestIdempotentBatchReplay() {
	s.Run("repeating the batch request replays the original offers", func() {
		token := s.managerToken()
		siteID := s.seedSite()
		s.seedStaff(siteID, 3)
		shiftID := s.publishShift(siteID, token)

		key := uuid.NewString()
		headers := map[string]string{"Idempotency-Key": key}

		first := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 3}, token, headers)
		require.Equal(s.T(), http.StatusCreated, first.Code, first.Body.String())

		second := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 3}, token, headers)
		require.Equal(s.T(), http.StatusCreated, second.Code, second.Body.String())
		s.Equal("true", second.Header().Get("X-Idempotent-Replay"))

		var a, b batchResponse
		s.Require().NoError(json.Unmarshal(first.Body.Bytes(), &a))
		s.Require().NoError(json.Unmarshal(second.Body.Bytes(), &b))
		s.ElementsMatch(a.OfferIDs, b.OfferIDs)
		s.Equal(a.RulesetVersion, b.RulesetVersion)

		var offerCount int
		err := s.DB.QueryRow(context.Background(),
			`SELECT count(*) FROM offers WHERE shift_id = $1`, shiftID).Scan(&offerCount)
		s.Require().NoError(err)
		s.Equal(3, offerCount)
	})

	s.Run("same key with different parameters conflicts", func() {
		token := s.managerToken()
		siteID := s.seedSite()
		s.seedStaff(siteID, 3)
		shiftID := s.publishShift(siteID, token)

		key := uuid.NewString()
		headers := map[string]string{"Idempotency-Key": key}

		first := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 3}, token, headers)
		require.Equal(s.T(), http.StatusCreated, first.Code, first.Body.String())

		second := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 1}, token, headers)
		s.Equal(http.StatusConflict, second.Code)
	})
}

func (s *OfferFlowSuite) TestConcurrentAccepts() {
	s.Run("exactly one of many racing accepts wins", func() {
		token := s.managerToken()
		siteID := s.seedSite()
		s.seedStaff(siteID, 10)
		shiftID := s.publishShift(siteID, token)

		w := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 10}, token, nil)
		require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())

		var batch batchResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &batch))
		s.Require().Len(batch.OfferIDs, 10)

		recipients := make([]uuid.UUID, len(batch.OfferIDs))
		for i, offerID := range batch.OfferIDs {
			recipients[i] = s.offerRecipient(offerID)
		}

		results := make([]acceptResponse, len(batch.OfferIDs))
		codes := make([]int, len(batch.OfferIDs))

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := range batch.OfferIDs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				r := s.do(http.MethodPost, "/api/offers/"+batch.OfferIDs[i].String()+"/accept",
					map[string]any{"staffId": recipients[i]}, "", nil)
				codes[i] = r.Code
				_ = json.Unmarshal(r.Body.Bytes(), &results[i])
			}(i)
		}
		close(start)
		wg.Wait()

		var winners int
		for i := range results {
			require.Equal(s.T(), http.StatusOK, codes[i])
			if results[i].Won {
				winners++
			}
		}
		s.Equal(1, winners, "exactly one accept must win")

		var openOffers int
		err := s.DB.QueryRow(context.Background(),
			`SELECT count(*) FROM offers WHERE shift_id = $1 AND status = 'sent'`, shiftID).
			Scan(&openOffers)
		s.Require().NoError(err)
		s.Zero(openOffers)

		var acceptedOffers int
		err = s.DB.QueryRow(context.Background(),
			`SELECT count(*) FROM offers WHERE shift_id = $1 AND status = 'accepted'`, shiftID).
			Scan(&acceptedOffers)
		s.Require().NoError(err)
		s.Equal(1, acceptedOffers)
	})
}

func (s *OfferFlowSuite) TestSicknessReopensSlot() {
	s.Run("sickness cancels the shift and publishes a replacement", func() {
		token := s.managerToken()
		siteID := s.seedSite()
		s.seedStaff(siteID, 1)
		shiftID := s.publishShift(siteID, token)

		w := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 1}, token, nil)
		require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())

		var batch batchResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &batch))
		recipient := s.offerRecipient(batch.OfferIDs[0])

		w = s.do(http.MethodPost, "/api/offers/"+batch.OfferIDs[0].String()+"/accept",
			nil, s.staffToken(recipient), nil)
		require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())

		w = s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/sickness", nil, token, nil)
		require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())

		var sickness struct {
			ReplacementShiftID uuid.UUID `json:"replacementShiftId"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &sickness))

		var originalStatus, replacementStatus, replacementSource string
		err := s.DB.QueryRow(context.Background(),
			`SELECT status FROM shifts WHERE id = $1`, shiftID).Scan(&originalStatus)
		s.Require().NoError(err)
		err = s.DB.QueryRow(context.Background(),
			`SELECT status, source FROM shifts WHERE id = $1`, sickness.ReplacementShiftID).
			Scan(&replacementStatus, &replacementSource)
		s.Require().NoError(err)

		s.Equal("cancelled", originalStatus)
		s.Equal("published", replacementStatus)
		s.Equal("sickness", replacementSource)
	})
}

func (s *OfferFlowSuite) TestAuthorization() {
	s.Run("issuing offers requires a manager", func() {
		siteID := s.seedSite()
		staffIDs := s.seedStaff(siteID, 1)
		shiftID := s.publishShift(siteID, s.managerToken())

		w := s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 1}, "", nil)
		s.Equal(http.StatusUnauthorized, w.Code)

		w = s.do(http.MethodPost, "/api/shifts/"+shiftID.String()+"/offers/batch",
			map[string]any{"size": 1}, s.staffToken(staffIDs[0]), nil)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("publishing shifts requires a manager", func() {
		siteID := s.seedSite()
		staffIDs := s.seedStaff(siteID, 1)

		starts := time.Now().Add(48 * time.Hour).UTC()
		w := s.do(http.MethodPost, "/api/sites/"+siteID.String()+"/shifts", map[string]any{
			"role":     "bartender",
			"startsAt": starts,
			"endsAt":   starts.Add(8 * time.Hour),
			"status":   "published",
		}, s.staffToken(staffIDs[0]), nil)
		s.Equal(http.StatusForbidden, w.Code)
	})
}
