package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"alertfilter/core"
	"alertfilter/metrics"
	"alertfilter/storage"

	"go.uber.org/zap"
)

var (
	// ErrActorNotFound is returned when the acting user ID does not resolve
	// to a user. It always wraps storage.ErrUserNotFound.
	ErrActorNotFound = errors.New("actor not found")

	// ErrAccessDenied is returned when the access gate refuses the actor
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidSettingValue is returned when a value is not a valid document
	// for its setting
	ErrInvalidSettingValue = errors.New("invalid setting value")
)

// UserLookup resolves users together with their role and organisation.
// Defined here (consumer package) so tests can supply an in-memory fake.
type UserLookup interface {
	GetAuthUser(ctx context.Context, id int64) (*storage.User, error)
}

// SettingStore persists user settings.
type SettingStore interface {
	GetUserSetting(ctx context.Context, userID int64, name string) (*storage.UserSetting, error)
	ListUserSettings(ctx context.Context, userID int64) ([]storage.UserSetting, error)
	SaveUserSetting(ctx context.Context, setting *storage.UserSetting) error
	DeleteUserSetting(ctx context.Context, userID int64, name string) error
	GetSettingOwner(ctx context.Context, settingID int64) (core.SettingOwner, error)
}

// RuleEvaluator decides whether an event satisfies a rule tree.
type RuleEvaluator interface {
	Evaluate(rule core.RuleNode, event *core.Event) bool
}

// RuleSource returns the parsed tree of a stored rule document.
type RuleSource interface {
	Get(key string, document []byte) (core.RuleNode, error)
	Invalidate(key string)
}

// UserSettingService manages per-user settings and applies the publish
// alert filter stored in them.
//
// ACCESS CONTROL:
//   - Site admins may manage every setting
//   - Org admins may manage settings of users in their organisation
//   - Every user may manage their own settings
//
// FAILURE MODES:
//   - Writes are validated strictly and rejected with a descriptive error
//   - A stored rule that no longer parses makes CheckPublishFilter return false
//   - An unknown actor is reported as ErrActorNotFound, never as a deny
type UserSettingService struct {
	users     UserLookup
	settings  SettingStore
	evaluator RuleEvaluator
	rules     RuleSource
	limits    core.RuleLimits
	logger    *zap.SugaredLogger
}

// NewUserSettingService creates a new UserSettingService.
// All dependencies are required; the constructor panics on nil to fail fast.
func NewUserSettingService(
	users UserLookup,
	settings SettingStore,
	evaluator RuleEvaluator,
	rules RuleSource,
	limits core.RuleLimits,
	logger *zap.SugaredLogger,
) *UserSettingService {
	if users == nil {
		panic("users is required")
	}
	if settings == nil {
		panic("settings is required")
	}
	if evaluator == nil {
		panic("evaluator is required")
	}
	if rules == nil {
		panic("rules is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &UserSettingService{
		users:     users,
		settings:  settings,
		evaluator: evaluator,
		rules:     rules,
		limits:    limits,
		logger:    logger,
	}
}

func ruleCacheKey(userID int64, name string) string {
	return strconv.FormatInt(userID, 10) + ":" + name
}

// CheckPublishFilter reports whether the user should be alerted about event.
//
// BUSINESS LOGIC:
//  1. No publish_alert_filter setting, or an empty one: alert
//  2. Stored rule fails to parse: do not alert, log the fault
//  3. Otherwise: the evaluator's verdict
//
// Only storage failures are returned as errors.
func (s *UserSettingService) CheckPublishFilter(ctx context.Context, userID int64, event *core.Event) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	setting, err := s.settings.GetUserSetting(ctx, userID, core.SettingPublishAlertFilter)
	if errors.Is(err, storage.ErrSettingNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load publish filter of user %d: %w", userID, err)
	}

	rule, err := s.rules.Get(ruleCacheKey(userID, core.SettingPublishAlertFilter), setting.Value)
	if err != nil {
		s.logger.Warnw("Ignoring unparseable publish filter",
			"user_id", userID,
			"error", err)
		return false, nil
	}
	if rule == nil {
		return true, nil
	}

	return s.evaluator.Evaluate(rule, event), nil
}

// EvaluateDocument parses a rule document and evaluates it against event
// without touching storage. Parse failures are returned.
func (s *UserSettingService) EvaluateDocument(document []byte, event *core.Event) (bool, error) {
	rule, err := core.ParseRule(document, s.limits)
	if err != nil {
		return false, err
	}
	if rule == nil {
		return true, nil
	}
	return s.evaluator.Evaluate(rule, event), nil
}

// CheckAccess reports whether the actor may manage the setting row settingID.
//
// ERRORS:
//   - ErrActorNotFound: actorID does not resolve to a user
//   - storage.ErrSettingNotFound: no such setting
func (s *UserSettingService) CheckAccess(ctx context.Context, actorID, settingID int64) (bool, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return false, err
	}

	owner, err := s.settings.GetSettingOwner(ctx, settingID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve owner of setting %d: %w", settingID, err)
	}

	allowed := core.CheckAccess(actor, owner)
	if !allowed {
		metrics.AccessDenied.Inc()
	}
	return allowed, nil
}

// GetSetting returns the named setting of userID.
func (s *UserSettingService) GetSetting(ctx context.Context, actorID, userID int64, name string) (*storage.UserSetting, error) {
	if err := core.CheckSettingValidity(name); err != nil {
		return nil, err
	}
	if err := s.Authorize(ctx, actorID, userID); err != nil {
		return nil, err
	}

	setting, err := s.settings.GetUserSetting(ctx, userID, name)
	if err != nil {
		s.record("get", err)
		return nil, fmt.Errorf("failed to get setting %s of user %d: %w", name, userID, err)
	}
	s.record("get", nil)
	return setting, nil
}

// ListSettings returns every setting of userID.
func (s *UserSettingService) ListSettings(ctx context.Context, actorID, userID int64) ([]storage.UserSetting, error) {
	if err := s.Authorize(ctx, actorID, userID); err != nil {
		return nil, err
	}

	settings, err := s.settings.ListUserSettings(ctx, userID)
	s.record("list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings of user %d: %w", userID, err)
	}
	return settings, nil
}

// SetSetting validates value and stores it as the named setting of userID.
//
// BUSINESS LOGIC:
//  1. The setting name must be registered
//  2. The actor must pass the access gate for the target user
//  3. Rule settings are schema-checked, parsed within limits and validated,
//     then stored in canonical JSON; an empty document is stored as []
//  4. The cached parse of the previous value is dropped
func (s *UserSettingService) SetSetting(ctx context.Context, actorID, userID int64, name string, value []byte) (*storage.UserSetting, error) {
	def, ok := core.LookupSetting(name)
	if !ok {
		return nil, core.CheckSettingValidity(name)
	}
	if err := s.Authorize(ctx, actorID, userID); err != nil {
		return nil, err
	}

	encoded, err := s.encodeValue(def, value)
	if err != nil {
		s.record("set", err)
		return nil, err
	}

	setting := &storage.UserSetting{
		UserID:  userID,
		Setting: name,
		Value:   encoded,
	}
	if err := s.settings.SaveUserSetting(ctx, setting); err != nil {
		s.record("set", err)
		return nil, fmt.Errorf("failed to save setting %s of user %d: %w", name, userID, err)
	}
	s.rules.Invalidate(ruleCacheKey(userID, name))

	s.record("set", nil)
	s.logger.Infow("User setting saved",
		"actor_id", actorID,
		"user_id", userID,
		"setting", name)
	return setting, nil
}

// DeleteSetting removes the named setting of userID.
func (s *UserSettingService) DeleteSetting(ctx context.Context, actorID, userID int64, name string) error {
	if err := core.CheckSettingValidity(name); err != nil {
		return err
	}
	if err := s.Authorize(ctx, actorID, userID); err != nil {
		return err
	}

	err := s.settings.DeleteUserSetting(ctx, userID, name)
	s.rules.Invalidate(ruleCacheKey(userID, name))
	s.record("delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s of user %d: %w", name, userID, err)
	}

	s.logger.Infow("User setting deleted",
		"actor_id", actorID,
		"user_id", userID,
		"setting", name)
	return nil
}

// ValidSettings returns the registry of settings users may store.
func (s *UserSettingService) ValidSettings() []core.SettingDefinition {
	return core.ValidSettings()
}

func (s *UserSettingService) encodeValue(def core.SettingDefinition, value []byte) (json.RawMessage, error) {
	if !def.Rule {
		if len(value) == 0 {
			return json.RawMessage("[]"), nil
		}
		if !json.Valid(value) {
			return nil, fmt.Errorf("%w: %s is not valid JSON", ErrInvalidSettingValue, def.Name)
		}
		return json.RawMessage(value), nil
	}

	rule, err := core.ValidateRuleDocument(value, s.limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettingValue, err)
	}

	encoded, err := core.MarshalRule(rule)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettingValue, err)
	}
	return encoded, nil
}

// loadActor resolves actorID through the user lookup.
func (s *UserSettingService) loadActor(ctx context.Context, actorID int64) (core.Actor, error) {
	user, err := s.users.GetAuthUser(ctx, actorID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return core.Actor{}, fmt.Errorf("%w: user %d: %w", ErrActorNotFound, actorID, err)
	}
	if err != nil {
		return core.Actor{}, fmt.Errorf("failed to load actor %d: %w", actorID, err)
	}
	return user.Actor(), nil
}

// Authorize applies the access gate to settings owned by userID.
func (s *UserSettingService) Authorize(ctx context.Context, actorID, userID int64) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}

	owner := core.SettingOwner{UserID: userID}
	if actor.ID == userID {
		owner.OrgID = actor.OrgID
	} else {
		target, err := s.users.GetAuthUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load user %d: %w", userID, err)
		}
		owner.OrgID = target.OrgID
	}

	if !core.CheckAccess(actor, owner) {
		metrics.AccessDenied.Inc()
		s.logger.Warnw("Setting access denied",
			"actor_id", actorID,
			"user_id", userID)
		return fmt.Errorf("%w: user %d may not manage settings of user %d", ErrAccessDenied, actorID, userID)
	}
	return nil
}

func (s *UserSettingService) record(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.SettingOperations.WithLabelValues(operation, result).Inc()
}
