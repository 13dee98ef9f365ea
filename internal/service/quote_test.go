package service_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteService_AcceptScenario(t *testing.T) {
	f := newFixture(t)
	sr := f.createRequest("eq-ventilator")
	assert.Equal(t, domain.ServiceRequestStatusPending, sr.Status)

	q1 := f.submit(f.provider1User, sr.ID, provider1ID, 500000)
	got, err := f.requests.Get(f.ctx, f.hospitalMember, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceRequestStatusQuoted, got.Status)

	q2 := f.submit(f.provider2User, sr.ID, provider2ID, 450000)

	res, err := f.quotes.Accept(f.ctx, f.hospitalOwner, q2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusAccepted, res.Quote.Status)
	assert.Equal(t, domain.ServiceRequestStatusAccepted, res.ServiceRequest.Status)
	assert.Equal(t, provider2ID, *res.ServiceRequest.AssignedProviderID)
	assert.Equal(t, []string{q1.ID}, res.RejectedQuoteIDs)

	stored, err := f.store.Quotes().GetByID(f.ctx, q1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusRejected, stored.Status)

	_, err = f.quotes.Accept(f.ctx, f.hospitalOwner, q1.ID)
	assertCode(t, err, domain.CodeConflict)
	assert.ErrorIs(t, err, domain.ErrServiceRequestAlreadyAccepted)

	entries, err := f.store.AuditLogs().List(f.ctx, domain.AuditFilter{ActionPrefix: domain.ActionQuoteAccepted})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, string(entries[0].NewValues()), q1.ID)

	topics := f.notifier.topics()
	assert.Contains(t, topics, domain.TopicQuoteAccepted)
	assert.Contains(t, topics, domain.TopicQuoteRejected)
}

func TestQuoteService_ConcurrentAccept(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		sr := f.createRequest("eq-race")
		q1 := f.submit(f.provider1User, sr.ID, provider1ID, 500000)
		q2 := f.submit(f.provider2User, sr.ID, provider2ID, 450000)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, id := range []string{q1.ID, q2.ID} {
			wg.Add(1)
			go func(j int, id string) {
				defer wg.Done()
				_, errs[j] = f.quotes.Accept(f.ctx, f.hospitalOwner, id)
			}(j, id)
		}
		wg.Wait()

		var succeeded int
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, errors.Is(err, domain.ErrServiceRequestAlreadyAccepted), err.Error())
		}
		assert.Equal(t, 1, succeeded)

		quotes, err := f.store.Quotes().ListByServiceRequest(f.ctx, sr.ID)
		require.NoError(t, err)
		var accepted int
		for _, q := range quotes {
			if q.Status == domain.QuoteStatusAccepted {
				accepted++
			}
		}
		assert.Equal(t, 1, accepted)
	}
}

func TestQuoteService_Submit(t *testing.T) {
	f := newFixture(t)
	f.provider("prov-pending", providerOrg2ID, "Unverified Team", domain.ProviderStatusPendingVerification, domain.VerificationStatusPending)
	f.provider("prov-in-house", hospitalOrgID, "In-house Biomedical", domain.ProviderStatusActive, domain.VerificationStatusVerified)
	sr := f.createRequest("eq-submit")

	t.Run("Provider Not Eligible", func(t *testing.T) {
		_, err := f.quotes.Submit(f.ctx, f.provider2User, service.SubmitQuoteInput{
			ServiceRequestID: sr.ID, ProviderID: "prov-pending", Amount: 1000, Currency: "VND",
		})
		assert.ErrorIs(t, err, domain.ErrProviderNotEligible)
	})

	t.Run("Same Organization", func(t *testing.T) {
		_, err := f.quotes.Submit(f.ctx, f.hospitalOwner, service.SubmitQuoteInput{
			ServiceRequestID: sr.ID, ProviderID: "prov-in-house", Amount: 1000, Currency: "VND",
		})
		assert.ErrorIs(t, err, domain.ErrSameOrganization)
	})

	t.Run("Caller Not In Provider Organization", func(t *testing.T) {
		_, err := f.quotes.Submit(f.ctx, f.provider2User, service.SubmitQuoteInput{
			ServiceRequestID: sr.ID, ProviderID: provider1ID, Amount: 1000, Currency: "VND",
		})
		assertCode(t, err, domain.CodeForbidden)
	})

	t.Run("Invalid Amount And Currency", func(t *testing.T) {
		_, err := f.quotes.Submit(f.ctx, f.provider1User, service.SubmitQuoteInput{
			ServiceRequestID: sr.ID, ProviderID: provider1ID, Amount: 0, Currency: "dong",
		})
		assertCode(t, err, domain.CodeValidation)
	})

	t.Run("Valid Until In The Past", func(t *testing.T) {
		past := f.clock.Now().Add(-time.Hour)
		_, err := f.quotes.Submit(f.ctx, f.provider1User, service.SubmitQuoteInput{
			ServiceRequestID: sr.ID, ProviderID: provider1ID, Amount: 1000, Currency: "VND", ValidUntil: &past,
		})
		assertCode(t, err, domain.CodeValidation)
	})

	t.Run("Duplicate Pending Quote", func(t *testing.T) {
		f.submit(f.provider1User, sr.ID, provider1ID, 1000)
		_, err := f.quotes.Submit(f.ctx, f.provider1User, service.SubmitQuoteInput{
			ServiceRequestID: sr.ID, ProviderID: provider1ID, Amount: 2000, Currency: "VND",
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateQuote)
	})

	t.Run("Request Not Quotable", func(t *testing.T) {
		accepted, _ := f.acceptedRequest("eq-closed", 1000)
		_, err := f.quotes.Submit(f.ctx, f.provider2User, service.SubmitQuoteInput{
			ServiceRequestID: accepted.ID, ProviderID: provider2ID, Amount: 1000, Currency: "VND",
		})
		assert.ErrorIs(t, err, domain.ErrServiceRequestNotQuotable)
	})

	t.Run("Unknown Request", func(t *testing.T) {
		_, err := f.quotes.Submit(f.ctx, f.provider2User, service.SubmitQuoteInput{
			ServiceRequestID: "missing", ProviderID: provider2ID, Amount: 1000, Currency: "VND",
		})
		assert.ErrorIs(t, err, domain.ErrServiceRequestNotFound)
	})
}

func TestQuoteService_Update(t *testing.T) {
	f := newFixture(t)
	sr := f.createRequest("eq-update")
	q := f.submit(f.provider1User, sr.ID, provider1ID, 1000)

	t.Run("Success", func(t *testing.T) {
		amount := int64(1500)
		days := 3
		got, err := f.quotes.Update(f.ctx, f.provider1User, service.UpdateQuoteInput{
			QuoteID: q.ID, Amount: &amount, EstimatedDurationDays: &days,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1500), got.Amount)
		assert.Equal(t, 3, *got.EstimatedDurationDays)

		entries, err := f.store.AuditLogs().List(f.ctx, domain.AuditFilter{ResourceID: q.ID, ActionPrefix: domain.ActionQuoteUpdated})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.JSONEq(t, `{"amount":1000,"estimated_duration_days":null}`, string(entries[0].PreviousValues()))
	})

	t.Run("Other Tenant Sees Not Found", func(t *testing.T) {
		amount := int64(1)
		_, err := f.quotes.Update(f.ctx, f.provider2User, service.UpdateQuoteInput{QuoteID: q.ID, Amount: &amount})
		assert.ErrorIs(t, err, domain.ErrQuoteNotFound)

		_, missing := f.quotes.Update(f.ctx, f.provider2User, service.UpdateQuoteInput{QuoteID: "no-such-quote", Amount: &amount})
		assert.ErrorIs(t, missing, domain.ErrQuoteNotFound)
		assert.Equal(t, missing.Error(), err.Error())

		_, err = f.quotes.Update(f.ctx, f.otherHospital, service.UpdateQuoteInput{QuoteID: q.ID, Amount: &amount})
		assert.ErrorIs(t, err, domain.ErrQuoteNotFound)
	})

	t.Run("Hospital Cannot Update", func(t *testing.T) {
		amount := int64(1)
		_, err := f.quotes.Update(f.ctx, f.hospitalMember, service.UpdateQuoteInput{QuoteID: q.ID, Amount: &amount})
		assertCode(t, err, domain.CodeForbidden)
	})

	t.Run("Not Editable After Acceptance", func(t *testing.T) {
		_, err := f.quotes.Accept(f.ctx, f.hospitalOwner, q.ID)
		require.NoError(t, err)
		amount := int64(2000)
		_, err = f.quotes.Update(f.ctx, f.provider1User, service.UpdateQuoteInput{QuoteID: q.ID, Amount: &amount})
		assert.ErrorIs(t, err, domain.ErrQuoteNotEditable)
	})
}

func TestQuoteService_AcceptRules(t *testing.T) {
	f := newFixture(t)

	t.Run("Expired Quote", func(t *testing.T) {
		sr := f.createRequest("eq-expired")
		validUntil := f.clock.Now().Add(time.Hour)
		q, err := f.quotes.Submit(f.ctx, f.provider1User, service.SubmitQuoteInput{
			ServiceRequestID: sr.ID, ProviderID: provider1ID, Amount: 1000, Currency: "VND", ValidUntil: &validUntil,
		})
		require.NoError(t, err)
		f.clock.Advance(2 * time.Hour)

		_, err = f.quotes.Accept(f.ctx, f.hospitalOwner, q.ID)
		assert.ErrorIs(t, err, domain.ErrQuoteNotAcceptable)
	})

	t.Run("Provider Cannot Accept", func(t *testing.T) {
		sr := f.createRequest("eq-self-accept")
		q := f.submit(f.provider1User, sr.ID, provider1ID, 1000)
		_, err := f.quotes.Accept(f.ctx, f.provider1User, q.ID)
		assertCode(t, err, domain.CodeForbidden)
	})

	t.Run("Cancelled Request", func(t *testing.T) {
		sr := f.createRequest("eq-cancelled")
		q := f.submit(f.provider1User, sr.ID, provider1ID, 1000)
		_, err := f.requests.Transition(f.ctx, f.hospitalOwner, sr.ID, domain.ServiceRequestStatusCancelled, "")
		require.NoError(t, err)
		_, err = f.quotes.Accept(f.ctx, f.hospitalOwner, q.ID)
		assertCode(t, err, domain.CodeInvalidTransition)
	})

	t.Run("Unknown Quote", func(t *testing.T) {
		_, err := f.quotes.Accept(f.ctx, f.hospitalOwner, "missing")
		assert.ErrorIs(t, err, domain.ErrQuoteNotFound)
	})

	t.Run("Other Tenant Sees Not Found", func(t *testing.T) {
		sr := f.createRequest("eq-foreign-accept")
		q := f.submit(f.provider1User, sr.ID, provider1ID, 1000)

		_, err := f.quotes.Accept(f.ctx, f.otherHospital, q.ID)
		assert.ErrorIs(t, err, domain.ErrQuoteNotFound)
		_, missing := f.quotes.Accept(f.ctx, f.otherHospital, "no-such-quote")
		assert.ErrorIs(t, missing, domain.ErrQuoteNotFound)
		assert.Equal(t, missing.Error(), err.Error())

		_, err = f.quotes.Accept(f.ctx, f.stranger, q.ID)
		assert.ErrorIs(t, err, domain.ErrQuoteNotFound)

		stored, err := f.store.Quotes().GetByID(f.ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStatusPending, stored.Status)
	})
}

func TestQuoteService_Decline(t *testing.T) {
	f := newFixture(t)
	sr := f.createRequest("eq-decline")
	q := f.submit(f.provider1User, sr.ID, provider1ID, 1000)

	t.Run("Reason Too Short", func(t *testing.T) {
		_, err := f.quotes.Decline(f.ctx, f.provider1User, sr.ID, provider1ID, "   bận     ")
		assert.ErrorIs(t, err, domain.ErrDeclineReasonTooShort)
	})

	t.Run("Success", func(t *testing.T) {
		d, err := f.quotes.Decline(f.ctx, f.provider1User, sr.ID, provider1ID, "Không có linh kiện thay thế")
		require.NoError(t, err)
		assert.Equal(t, provider1ID, d.ProviderID)

		stored, err := f.store.Quotes().GetByID(f.ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStatusRejected, stored.Status)

		got, err := f.requests.Get(f.ctx, f.hospitalMember, sr.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ServiceRequestStatusQuoted, got.Status)

		declines, err := f.store.ServiceRequests().ListDeclines(f.ctx, sr.ID)
		require.NoError(t, err)
		assert.Len(t, declines, 1)
		assert.Contains(t, f.auditActions(sr.ID), domain.ActionQuoteDeclined)
	})
}

func TestQuoteService_Expire(t *testing.T) {
	f := newFixture(t)
	sr := f.createRequest("eq-expire")
	validUntil := f.clock.Now().Add(time.Hour)
	q, err := f.quotes.Submit(f.ctx, f.provider1User, service.SubmitQuoteInput{
		ServiceRequestID: sr.ID, ProviderID: provider1ID, Amount: 1000, Currency: "VND", ValidUntil: &validUntil,
	})
	require.NoError(t, err)
	open := f.submit(f.provider2User, sr.ID, provider2ID, 900)

	n, err := f.quotes.Expire(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.clock.Advance(2 * time.Hour)
	n, err = f.quotes.Expire(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.store.Quotes().GetByID(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusExpired, stored.Status)
	untouched, err := f.store.Quotes().GetByID(f.ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusPending, untouched.Status)

	entries, err := f.store.AuditLogs().List(f.ctx, domain.AuditFilter{ResourceID: q.ID, ActionPrefix: domain.ActionQuoteExpired})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SystemActorID, entries[0].ActorID())
	assert.Equal(t, providerOrg1ID, entries[0].OrganizationID())
}

func TestQuoteService_StatsAndLists(t *testing.T) {
	f := newFixture(t)

	t.Run("Win Rate Not Applicable", func(t *testing.T) {
		stats, err := f.quotes.Stats(f.ctx, f.provider2User, providerOrg2ID)
		require.NoError(t, err)
		assert.Equal(t, domain.WinRateNotApplicable, stats.WinRate)
	})

	f.acceptedRequest("eq-a", 1000)
	f.acceptedRequest("eq-b", 1000)
	sr := f.createRequest("eq-c")
	f.submit(f.provider1User, sr.ID, provider1ID, 1000)
	q2 := f.submit(f.provider2User, sr.ID, provider2ID, 900)
	_, err := f.quotes.Accept(f.ctx, f.hospitalOwner, q2.ID)
	require.NoError(t, err)

	t.Run("Two Accepted One Rejected", func(t *testing.T) {
		stats, err := f.quotes.Stats(f.ctx, f.provider1User, providerOrg1ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.AcceptedCount)
		assert.Equal(t, 1, stats.RejectedCount)
		assert.Equal(t, 0, stats.PendingCount)
		assert.Equal(t, 67, stats.WinRate)
	})

	t.Run("Stats Of Foreign Organization", func(t *testing.T) {
		_, err := f.quotes.Stats(f.ctx, f.provider2User, providerOrg1ID)
		assertCode(t, err, domain.CodeForbidden)
	})

	t.Run("Quotes Per Request", func(t *testing.T) {
		all, err := f.quotes.ListForServiceRequest(f.ctx, f.hospitalMember, sr.ID)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		own, err := f.quotes.ListForServiceRequest(f.ctx, f.provider2User, sr.ID)
		require.NoError(t, err)
		require.Len(t, own, 1)
		assert.Equal(t, q2.ID, own[0].ID)
	})

	t.Run("Get Hides Competitor Quote", func(t *testing.T) {
		_, err := f.quotes.Get(f.ctx, f.provider1User, q2.ID)
		assert.ErrorIs(t, err, domain.ErrQuoteNotFound)
		got, err := f.quotes.Get(f.ctx, f.hospitalMember, q2.ID)
		require.NoError(t, err)
		assert.Equal(t, q2.ID, got.ID)
	})

	t.Run("Provider Listing", func(t *testing.T) {
		accepted, err := f.quotes.ListForProvider(f.ctx, f.provider1User, providerOrg1ID, domain.QuoteStatusAccepted)
		require.NoError(t, err)
		assert.Len(t, accepted, 2)
	})
}
