package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/internal/model"
	"calltracker/pkg/kv"
	"calltracker/pkg/lock"
	"calltracker/pkg/logger"
	"calltracker/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
)

// AnalysisStore owns the three denormalized views (global feed,
// per-user history, ticker index) and the recomputation primitives that
// keep them consistent under corrective mutation.
type AnalysisStore interface {
	AddAnalysis(ctx context.Context, a *model.StoredAnalysis) error
	UpdateUserProfile(ctx context.Context, a *model.StoredAnalysis) error
	// RecalculateUserProfile rebuilds the profile purely from the
	// current history. It is the canonical repair primitive and is
	// idempotent: repeated calls on unchanged history produce
	// byte-identical output.
	RecalculateUserProfile(ctx context.Context, username string) (*model.UserProfile, error)
	// RemoveAnalysisByTweetID removes every trace of a record: the
	// canonical entry, the feed, any user history referencing it and
	// the ticker index, then recomputes the owner's profile.
	RemoveAnalysisByTweetID(ctx context.Context, tweetID string) error
	// ReplaceAnalysis rewrites an existing record in the canonical
	// store, the feed (when present) and the owner's history, without
	// reordering either list and without touching the profile. The
	// refresher batches profile recomputes separately.
	ReplaceAnalysis(ctx context.Context, a *model.StoredAnalysis) error

	GetAnalysis(ctx context.Context, tweetID string) (*model.StoredAnalysis, error)
	GetRecentFeed(ctx context.Context, limit int) ([]model.StoredAnalysis, error)
	GetUserHistory(ctx context.Context, username string) ([]model.StoredAnalysis, error)
	GetUserProfile(ctx context.Context, username string) (*model.UserProfile, error)
	GetAllUserProfiles(ctx context.Context) ([]model.UserProfile, error)
	GetAllTickerProfiles(ctx context.Context, page, limit int, search string) (*dto.TickerProfilesPage, error)

	ListTrackedTickers(ctx context.Context) ([]model.TickerKey, error)
	GetTickerRefs(ctx context.Context, key model.TickerKey) ([]model.AnalysisRef, error)
	RemoveTickerRef(ctx context.Context, key model.TickerKey, ref model.AnalysisRef) error
}

type analysisStore struct {
	cfg       *config.Config
	log       *logger.Logger
	kvStore   kv.Store
	validator *goValidator.Validate
	// userLocks serializes read-modify-rewrite sequences per username
	// (and, under the feed key, for the global feed). The KV pipeline
	// gives batched writes, not isolation against concurrent readers
	// of the same list.
	userLocks *lock.Keyed
}

func NewAnalysisStore(cfg *config.Config, log *logger.Logger, kvStore kv.Store) AnalysisStore {
	return &analysisStore{
		cfg:       cfg,
		log:       log,
		kvStore:   kvStore,
		validator: goValidator.New(),
		userLocks: lock.NewKeyed(),
	}
}

func (s *analysisStore) AddAnalysis(ctx context.Context, a *model.StoredAnalysis) error {
	if err := s.validator.Struct(a); err != nil {
		return fmt.Errorf("invalid analysis record: %w", err)
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	tickerKey := a.TickerKey()

	s.userLocks.Lock(keyRecentFeed)
	defer s.userLocks.Unlock(keyRecentFeed)

	feed, err := s.kvStore.LRange(ctx, keyRecentFeed, 0, -1)
	if err != nil {
		return err
	}
	replaceAt := feedIndexOf(feed, a.TweetID)

	// Registering the ref and emptiness-driven cleanup in
	// RemoveTickerRef contend on the same set; same lock, taken after
	// the feed lock everywhere.
	s.userLocks.Lock(string(keyTickerRefs(tickerKey)))
	defer s.userLocks.Unlock(string(keyTickerRefs(tickerKey)))

	return s.kvStore.Pipelined(ctx, func(p kv.Pipeline) error {
		p.Set(keyAnalysis(a.TweetID), string(payload))

		if replaceAt >= 0 {
			// Re-analyzing an existing tweet corrects the feed entry
			// in place rather than duplicating it.
			feed[replaceAt] = string(payload)
			p.DelList(keyRecentFeed)
			p.RPush(keyRecentFeed, feed...)
		} else {
			p.LPush(keyRecentFeed, string(payload))
			p.LTrim(keyRecentFeed, 0, int64(s.cfg.Analysis.FeedSize)-1)
		}

		p.SAdd(keyTrackedTickers, string(tickerKey))
		p.SAdd(keyTickerRefs(tickerKey), a.Ref().String())
		return nil
	})
}

func (s *analysisStore) UpdateUserProfile(ctx context.Context, a *model.StoredAnalysis) error {
	username := utils.NormalizeUsername(a.Username)

	s.userLocks.Lock(username)
	defer s.userLocks.Unlock(username)

	history, err := s.readHistory(ctx, username)
	if err != nil {
		return err
	}

	replaced := false
	for i := range history {
		if history[i].TweetID == a.TweetID {
			// Existing id keeps its slot; only the content changes.
			history[i] = *a
			replaced = true
			break
		}
	}
	if !replaced {
		history = append([]model.StoredAnalysis{*a}, history...)
		if len(history) > s.cfg.Analysis.HistorySize {
			history = history[:s.cfg.Analysis.HistorySize]
		}
	}

	profile := s.computeProfile(a.Username, history)
	profilePayload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	entries, err := marshalHistory(history)
	if err != nil {
		return err
	}

	return s.kvStore.Pipelined(ctx, func(p kv.Pipeline) error {
		if replaced {
			p.DelList(keyUserHistory(username))
			p.RPush(keyUserHistory(username), entries...)
		} else {
			// Pure append: push the new head and evict past the cap.
			p.LPush(keyUserHistory(username), entries[0])
			p.LTrim(keyUserHistory(username), 0, int64(s.cfg.Analysis.HistorySize)-1)
		}
		p.Set(keyUserProfile(username), string(profilePayload))
		p.SAdd(keyAllUsers, username)
		return nil
	})
}

func (s *analysisStore) RecalculateUserProfile(ctx context.Context, username string) (*model.UserProfile, error) {
	normalized := utils.NormalizeUsername(username)

	s.userLocks.Lock(normalized)
	defer s.userLocks.Unlock(normalized)

	return s.recalculateLocked(ctx, username)
}

// recalculateLocked rebuilds the profile from the current history. The
// caller must hold the user lock.
func (s *analysisStore) recalculateLocked(ctx context.Context, username string) (*model.UserProfile, error) {
	normalized := utils.NormalizeUsername(username)

	history, err := s.readHistory(ctx, normalized)
	if err != nil {
		return nil, err
	}

	displayName := username
	if len(history) > 0 {
		displayName = history[0].Username
	}
	profile := s.computeProfile(displayName, history)

	payload, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := s.kvStore.Set(ctx, keyUserProfile(normalized), string(payload)); err != nil {
		return nil, err
	}
	return &profile, nil
}

// computeProfile is the pure projection from history to profile. The
// profile is never patched incrementally; divergence from this function
// is a consistency defect.
func (s *analysisStore) computeProfile(username string, history []model.StoredAnalysis) model.UserProfile {
	profile := model.UserProfile{
		Username:      username,
		TotalAnalyses: len(history),
	}

	for _, a := range history {
		switch ClassifyOutcome(a.Performance, s.cfg.Analysis.NeutralThreshold) {
		case OutcomeWin:
			profile.Wins++
		case OutcomeLoss:
			profile.Losses++
		default:
			profile.Neutral++
		}
		if a.Timestamp > profile.LastAnalyzed {
			profile.LastAnalyzed = a.Timestamp
		}
	}

	if len(history) > 0 {
		profile.Avatar = history[0].Avatar
	}
	if profile.TotalAnalyses > 0 {
		profile.WinRate = float64(profile.Wins) / float64(profile.TotalAnalyses) * 100
	}
	return profile
}

func (s *analysisStore) RemoveAnalysisByTweetID(ctx context.Context, tweetID string) error {
	record, err := s.GetAnalysis(ctx, tweetID)
	if err != nil {
		return err
	}

	// Feed first.
	if err := s.removeFromFeed(ctx, tweetID); err != nil {
		return err
	}

	// User histories. With the canonical record we know the owner;
	// without it (dangling cleanup) every history is checked.
	var owners []string
	if record != nil {
		owners = []string{utils.NormalizeUsername(record.Username)}
	} else {
		owners, err = s.kvStore.SMembers(ctx, keyAllUsers)
		if err != nil {
			return err
		}
	}
	for _, owner := range owners {
		if err := s.removeFromHistory(ctx, owner, tweetID); err != nil {
			return err
		}
	}

	// Ticker index. A reclassification may have migrated the refs to
	// the other symbol namespace after the record was written, so the
	// record's own key is only one candidate.
	if record != nil {
		for _, key := range candidateTickerKeys(record) {
			if err := s.RemoveTickerRef(ctx, key, record.Ref()); err != nil {
				return err
			}
		}
	} else {
		if err := s.removeRefEverywhere(ctx, tweetID); err != nil {
			return err
		}
	}

	if err := s.kvStore.Del(ctx, keyAnalysis(tweetID)); err != nil {
		return err
	}

	for _, owner := range owners {
		if _, err := s.RecalculateUserProfile(ctx, owner); err != nil {
			return err
		}
	}
	return nil
}

func (s *analysisStore) removeFromFeed(ctx context.Context, tweetID string) error {
	s.userLocks.Lock(keyRecentFeed)
	defer s.userLocks.Unlock(keyRecentFeed)

	feed, err := s.kvStore.LRange(ctx, keyRecentFeed, 0, -1)
	if err != nil {
		return err
	}
	kept := feed[:0]
	for _, entry := range feed {
		if analysisID(entry) != tweetID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(feed) {
		return nil
	}
	return s.kvStore.Pipelined(ctx, func(p kv.Pipeline) error {
		p.DelList(keyRecentFeed)
		if len(kept) > 0 {
			p.RPush(keyRecentFeed, kept...)
		}
		return nil
	})
}

func (s *analysisStore) removeFromHistory(ctx context.Context, username, tweetID string) error {
	s.userLocks.Lock(username)
	defer s.userLocks.Unlock(username)

	entries, err := s.kvStore.LRange(ctx, keyUserHistory(username), 0, -1)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, entry := range entries {
		if analysisID(entry) != tweetID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return s.kvStore.Pipelined(ctx, func(p kv.Pipeline) error {
		p.DelList(keyUserHistory(username))
		if len(kept) > 0 {
			p.RPush(keyUserHistory(username), kept...)
		}
		return nil
	})
}

// candidateTickerKeys lists every index key a record's ref can live
// under. Contract keys never migrate; symbol keys can sit in either
// namespace once an override has moved them.
func candidateTickerKeys(record *model.StoredAnalysis) []model.TickerKey {
	primary := record.TickerKey()
	if namespace, _, ok := primary.Parse(); ok && namespace == model.NamespaceContract {
		return []model.TickerKey{primary}
	}
	return []model.TickerKey{
		model.TickerKeyFor(model.AssetTypeCrypto, record.Symbol, ""),
		model.TickerKeyFor(model.AssetTypeStock, record.Symbol, ""),
	}
}

func (s *analysisStore) removeRefEverywhere(ctx context.Context, tweetID string) error {
	tickers, err := s.ListTrackedTickers(ctx)
	if err != nil {
		return err
	}
	for _, key := range tickers {
		refs, err := s.GetTickerRefs(ctx, key)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if ref.TweetID == tweetID {
				if err := s.RemoveTickerRef(ctx, key, ref); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *analysisStore) ReplaceAnalysis(ctx context.Context, a *model.StoredAnalysis) error {
	if err := s.validator.Struct(a); err != nil {
		return fmt.Errorf("invalid analysis record: %w", err)
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	username := utils.NormalizeUsername(a.Username)

	if err := s.kvStore.Set(ctx, keyAnalysis(a.TweetID), string(payload)); err != nil {
		return err
	}

	if err := s.replaceInList(ctx, keyRecentFeed, keyRecentFeed, a.TweetID, string(payload)); err != nil {
		return err
	}
	return s.replaceInList(ctx, username, keyUserHistory(username), a.TweetID, string(payload))
}

// replaceInList swaps the entry with the given id in place, preserving
// order. Missing ids are left alone: the record may have aged out of
// the feed while still living in the history.
func (s *analysisStore) replaceInList(ctx context.Context, lockKey, listKey, tweetID, payload string) error {
	s.userLocks.Lock(lockKey)
	defer s.userLocks.Unlock(lockKey)

	entries, err := s.kvStore.LRange(ctx, listKey, 0, -1)
	if err != nil {
		return err
	}
	replaceAt := feedIndexOf(entries, tweetID)
	if replaceAt < 0 {
		return nil
	}
	entries[replaceAt] = payload
	return s.kvStore.Pipelined(ctx, func(p kv.Pipeline) error {
		p.DelList(listKey)
		p.RPush(listKey, entries...)
		return nil
	})
}

func (s *analysisStore) GetAnalysis(ctx context.Context, tweetID string) (*model.StoredAnalysis, error) {
	payload, found, err := s.kvStore.Get(ctx, keyAnalysis(tweetID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var a model.StoredAnalysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis %s: %w", tweetID, err)
	}
	return &a, nil
}

func (s *analysisStore) GetRecentFeed(ctx context.Context, limit int) ([]model.StoredAnalysis, error) {
	if limit <= 0 || limit > s.cfg.Analysis.FeedSize {
		limit = s.cfg.Analysis.FeedSize
	}
	entries, err := s.kvStore.LRange(ctx, keyRecentFeed, 0, int64(limit)-1)
	if err != nil {
		return nil, err
	}
	return unmarshalHistory(entries)
}

func (s *analysisStore) GetUserHistory(ctx context.Context, username string) ([]model.StoredAnalysis, error) {
	return s.readHistory(ctx, utils.NormalizeUsername(username))
}

func (s *analysisStore) GetUserProfile(ctx context.Context, username string) (*model.UserProfile, error) {
	payload, found, err := s.kvStore.Get(ctx, keyUserProfile(username))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var profile model.UserProfile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile for %s: %w", username, err)
	}
	return &profile, nil
}

func (s *analysisStore) GetAllUserProfiles(ctx context.Context) ([]model.UserProfile, error) {
	usernames, err := s.kvStore.SMembers(ctx, keyAllUsers)
	if err != nil {
		return nil, err
	}

	profiles := make([]model.UserProfile, 0, len(usernames))
	for _, username := range usernames {
		profile, err := s.GetUserProfile(ctx, username)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			profiles = append(profiles, *profile)
		}
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].LastAnalyzed > profiles[j].LastAnalyzed
	})
	return profiles, nil
}

func (s *analysisStore) GetAllTickerProfiles(ctx context.Context, page, limit int, search string) (*dto.TickerProfilesPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	tickers, err := s.ListTrackedTickers(ctx)
	if err != nil {
		return nil, err
	}

	search = strings.ToUpper(strings.TrimSpace(search))
	profiles := make([]model.TickerProfile, 0, len(tickers))
	for _, key := range tickers {
		profile, err := s.tickerProfile(ctx, key)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			continue
		}
		if search != "" && !strings.Contains(strings.ToUpper(profile.Symbol), search) {
			continue
		}
		profiles = append(profiles, *profile)
	}

	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].CallCount != profiles[j].CallCount {
			return profiles[i].CallCount > profiles[j].CallCount
		}
		return profiles[i].Key < profiles[j].Key
	})

	total := len(profiles)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &dto.TickerProfilesPage{
		Items: profiles[start:end],
		Page:  page,
		Limit: limit,
		Total: total,
	}, nil
}

func (s *analysisStore) tickerProfile(ctx context.Context, key model.TickerKey) (*model.TickerProfile, error) {
	refs, err := s.GetTickerRefs(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}

	profile := model.TickerProfile{Key: key}
	for _, ref := range refs {
		a, err := s.GetAnalysis(ctx, ref.TweetID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			continue
		}
		profile.Symbol = a.Symbol
		profile.AssetType = a.AssetType
		profile.CallCount++
		switch ClassifyOutcome(a.Performance, s.cfg.Analysis.NeutralThreshold) {
		case OutcomeWin:
			profile.Wins++
		case OutcomeLoss:
			profile.Losses++
		default:
			profile.Neutral++
		}
		if a.Timestamp > profile.LastCallAt {
			profile.LastCallAt = a.Timestamp
		}
	}

	if profile.CallCount == 0 {
		return nil, nil
	}
	profile.WinRate = float64(profile.Wins) / float64(profile.CallCount) * 100
	return &profile, nil
}

func (s *analysisStore) ListTrackedTickers(ctx context.Context) ([]model.TickerKey, error) {
	members, err := s.kvStore.SMembers(ctx, keyTrackedTickers)
	if err != nil {
		return nil, err
	}
	keys := make([]model.TickerKey, 0, len(members))
	for _, member := range members {
		keys = append(keys, model.TickerKey(member))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

func (s *analysisStore) GetTickerRefs(ctx context.Context, key model.TickerKey) ([]model.AnalysisRef, error) {
	members, err := s.kvStore.SMembers(ctx, keyTickerRefs(key))
	if err != nil {
		return nil, err
	}
	refs := make([]model.AnalysisRef, 0, len(members))
	for _, member := range members {
		ref, ok := model.ParseAnalysisRef(member)
		if !ok {
			s.log.Warn("Dropping malformed ticker ref",
				logger.StringField("ticker_key", string(key)),
				logger.StringField("ref", member))
			continue
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	return refs, nil
}

func (s *analysisStore) RemoveTickerRef(ctx context.Context, key model.TickerKey, ref model.AnalysisRef) error {
	s.userLocks.Lock(string(keyTickerRefs(key)))
	defer s.userLocks.Unlock(string(keyTickerRefs(key)))

	if err := s.kvStore.SRem(ctx, keyTickerRefs(key), ref.String()); err != nil {
		return err
	}
	remaining, err := s.kvStore.SCard(ctx, keyTickerRefs(key))
	if err != nil {
		return err
	}
	if remaining == 0 {
		return s.kvStore.Pipelined(ctx, func(p kv.Pipeline) error {
			p.SRem(keyTrackedTickers, string(key))
			p.Del(keyTickerRefs(key))
			return nil
		})
	}
	return nil
}

func (s *analysisStore) readHistory(ctx context.Context, username string) ([]model.StoredAnalysis, error) {
	entries, err := s.kvStore.LRange(ctx, keyUserHistory(username), 0, -1)
	if err != nil {
		return nil, err
	}
	return unmarshalHistory(entries)
}

func marshalHistory(history []model.StoredAnalysis) ([]string, error) {
	entries := make([]string, 0, len(history))
	for i := range history {
		payload, err := json.Marshal(&history[i])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history entry: %w", err)
		}
		entries = append(entries, string(payload))
	}
	return entries, nil
}

func unmarshalHistory(entries []string) ([]model.StoredAnalysis, error) {
	history := make([]model.StoredAnalysis, 0, len(entries))
	for _, entry := range entries {
		var a model.StoredAnalysis
		if err := json.Unmarshal([]byte(entry), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
		}
		history = append(history, a)
	}
	return history, nil
}

func feedIndexOf(entries []string, tweetID string) int {
	for i, entry := range entries {
		if analysisID(entry) == tweetID {
			return i
		}
	}
	return -1
}

// analysisID peeks at the tweet id of a serialized record without
// decoding the whole thing.
func analysisID(payload string) string {
	var probe struct {
		TweetID string `json:"tweet_id"`
	}
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return ""
	}
	return probe.TweetID
}
