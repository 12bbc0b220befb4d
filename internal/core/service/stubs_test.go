package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
	"github.com/straightdeal/marketplace-api/internal/pkg/token"
)

// memRepo is an in-memory IdentityRepository with the same conditional-update rules as the
// Mongo store.
type memRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Identity
	nextID int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[string]*domain.Identity)}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func (r *memRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == identity.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.nextID++
	c := cloneIdentity(identity)
	c.ID = fmt.Sprintf("id-%d", r.nextID)
	r.byID[c.ID] = c
	return cloneIdentity(c), nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byID[id]; ok {
		return cloneIdentity(i), nil
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.byID {
		if i.Email == email {
			return cloneIdentity(i), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *memRepo) FindByResetTokenHash(_ context.Context, hash string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.byID {
		if hash != "" && i.ResetTokenHash == hash {
			return cloneIdentity(i), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

// update applies fn to the stored identity when match accepts it.
func (r *memRepo) update(id string, match func(*domain.Identity) bool, fn func(*domain.Identity)) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	if match != nil && !match(i) {
		return nil, domain.ErrStaleToken
	}
	fn(i)
	return cloneIdentity(i), nil
}

func (r *memRepo) SetEmailOTP(_ context.Context, id, code string, expiry time.Time) error {
	_, err := r.update(id, nil, func(i *domain.Identity) {
		i.EmailOTP, i.EmailOTPExpiry = code, expiry
	})
	return err
}

func (r *memRepo) ConsumeEmailOTP(_ context.Context, id, code string, now time.Time) (*domain.Identity, error) {
	return r.update(id,
		func(i *domain.Identity) bool {
			return !i.IsEmailVerified && domain.SlotValid(i.EmailOTP, code, i.EmailOTPExpiry, now)
		},
		func(i *domain.Identity) {
			i.IsEmailVerified = true
			i.EmailOTP, i.EmailOTPExpiry = "", time.Time{}
		})
}

func (r *memRepo) SetPhoneOTP(_ context.Context, id, phone, code string, expiry time.Time) error {
	_, err := r.update(id, nil, func(i *domain.Identity) {
		i.PhoneNumber, i.PhoneOTP, i.PhoneOTPExpiry = phone, code, expiry
	})
	return err
}

func (r *memRepo) ConsumePhoneOTP(_ context.Context, id, phone, code string, now time.Time) (*domain.Identity, error) {
	return r.update(id,
		func(i *domain.Identity) bool {
			return !i.IsPhoneVerified && i.PhoneNumber == phone &&
				domain.SlotValid(i.PhoneOTP, code, i.PhoneOTPExpiry, now)
		},
		func(i *domain.Identity) {
			i.IsPhoneVerified = true
			i.PhoneOTP, i.PhoneOTPExpiry = "", time.Time{}
		})
}

func (r *memRepo) PromoteToUser(_ context.Context, id string) (*domain.Identity, error) {
	return r.update(id,
		func(i *domain.Identity) bool { return i.Role == domain.RoleVisitor && i.IsFullyVerified() },
		func(i *domain.Identity) { i.Role = domain.RoleUser })
}

func (r *memRepo) SetResetToken(_ context.Context, id, hash string, expiry time.Time) error {
	_, err := r.update(id, nil, func(i *domain.Identity) {
		i.ResetTokenHash, i.ResetTokenExpiry = hash, expiry
	})
	return err
}

func (r *memRepo) ConsumeResetToken(ctx context.Context, hash, passwordHash string, now time.Time) (*domain.Identity, error) {
	i, err := r.FindByResetTokenHash(ctx, hash)
	if err != nil {
		return nil, domain.ErrStaleToken
	}
	return r.update(i.ID,
		func(i *domain.Identity) bool { return domain.SlotValid(i.ResetTokenHash, hash, i.ResetTokenExpiry, now) },
		func(i *domain.Identity) {
			i.PasswordHash = passwordHash
			i.ResetTokenHash, i.ResetTokenExpiry = "", time.Time{}
			i.RefreshToken = ""
		})
}

func (r *memRepo) SetRefreshToken(_ context.Context, id, tok string) error {
	_, err := r.update(id, nil, func(i *domain.Identity) { i.RefreshToken = tok })
	return err
}

func (r *memRepo) ClearRefreshToken(_ context.Context, id, current string) error {
	_, err := r.update(id,
		func(i *domain.Identity) bool { return i.RefreshToken != "" && i.RefreshToken == current },
		func(i *domain.Identity) { i.RefreshToken = "" })
	return err
}

func (r *memRepo) UpdateName(_ context.Context, id, first, last string) (*domain.Identity, error) {
	return r.update(id, nil, func(i *domain.Identity) { i.FirstName, i.LastName = first, last })
}

func (r *memRepo) UpdatePassword(_ context.Context, id, hash string) error {
	_, err := r.update(id, nil, func(i *domain.Identity) { i.PasswordHash = hash })
	return err
}

func (r *memRepo) get(t *testing.T, email string) *domain.Identity {
	t.Helper()
	i, err := r.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("identity %s not found: %v", email, err)
	}
	return i
}

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

type stubNotifier struct {
	emails  []sentMessage
	sms     []sentMessage
	sendErr error
}

func (n *stubNotifier) SendEmail(_ context.Context, to, subject, html string) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.emails = append(n.emails, sentMessage{To: to, Subject: subject, Body: html})
	return nil
}

func (n *stubNotifier) SendSMS(_ context.Context, to, body string) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sms = append(n.sms, sentMessage{To: to, Body: body})
	return nil
}

// fixedSecrets hands out codes and tokens from queues so tests know them in advance.
type fixedSecrets struct {
	codes  []string
	tokens []string
	ttl    time.Duration
}

func (f *fixedSecrets) Code() (string, error) {
	if len(f.codes) == 0 {
		return "000000", nil
	}
	c := f.codes[0]
	f.codes = f.codes[1:]
	return c, nil
}

func (f *fixedSecrets) ExpiryFrom(now time.Time) time.Time { return now.Add(f.ttl) }

func (f *fixedSecrets) Token() (string, error) {
	if len(f.tokens) == 0 {
		return "token-default", nil
	}
	t := f.tokens[0]
	f.tokens = f.tokens[1:]
	return t, nil
}

func (f *fixedSecrets) Hash(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

type stubThrottle struct {
	allowFn func(ctx context.Context, key string) error
	keys    []string
}

func (s *stubThrottle) Allow(ctx context.Context, key string) error {
	s.keys = append(s.keys, key)
	if s.allowFn != nil {
		return s.allowFn(ctx, key)
	}
	return nil
}

type stubProvider struct {
	exchangeFn func(ctx context.Context, code string) (*ports.ProviderTokens, error)
	profileFn  func(ctx context.Context, accessToken string) (*ports.ProviderProfile, error)
}

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p *stubProvider) ExchangeCode(ctx context.Context, code string) (*ports.ProviderTokens, error) {
	return p.exchangeFn(ctx, code)
}

func (p *stubProvider) FetchProfile(ctx context.Context, accessToken string) (*ports.ProviderProfile, error) {
	return p.profileFn(ctx, accessToken)
}

type memStates struct {
	states map[string]string
}

func (m *memStates) Save(_ context.Context, state, intent string, _ time.Duration) error {
	m.states[state] = intent
	return nil
}

func (m *memStates) Consume(_ context.Context, state string) (string, bool, error) {
	intent, ok := m.states[state]
	delete(m.states, state)
	return intent, ok, nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc      *AuthService
	repo     *memRepo
	notifier *stubNotifier
	secrets  *fixedSecrets
	throttle *stubThrottle
	provider *stubProvider
	states   *memStates
	clock    *clock
	access   *token.Codec
	refresh  *token.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	access, err := token.New("access-secret", "test", domain.TokenAccess)
	if err != nil {
		t.Fatalf("access codec: %v", err)
	}
	refresh, err := token.New("refresh-secret", "test", domain.TokenRefresh)
	if err != nil {
		t.Fatalf("refresh codec: %v", err)
	}
	access.WithClock(clk.Now)
	refresh.WithClock(clk.Now)

	f := &fixture{
		repo:     newMemRepo(),
		notifier: &stubNotifier{},
		secrets:  &fixedSecrets{ttl: 5 * time.Minute},
		throttle: &stubThrottle{},
		provider: &stubProvider{},
		states:   &memStates{states: make(map[string]string)},
		clock:    clk,
		access:   access,
		refresh:  refresh,
	}
	f.svc = NewAuthService(AuthDeps{
		Repo:     f.repo,
		Access:   access,
		Refresh:  refresh,
		Secrets:  f.secrets,
		Notifier: f.notifier,
		Throttle: f.throttle,
		Provider: f.provider,
		States:   f.states,
		Log:      zerolog.Nop(),
		Now:      clk.Now,
	}, AuthConfig{
		BcryptCost:       4,
		ResetPasswordURL: "https://app.example.com/reset-password",
	})
	return f
}

const strongPassword = "Abcdefg1!"

// register creates a local identity whose email code is code.
func (f *fixture) register(t *testing.T, email, code string) *domain.Identity {
	t.Helper()
	f.secrets.codes = append(f.secrets.codes, code)
	identity, err := f.svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  strongPassword,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return identity
}

// verified registers an identity and completes both verification steps.
func (f *fixture) verified(t *testing.T, email string) *domain.Identity {
	t.Helper()
	ctx := context.Background()
	identity := f.register(t, email, "111111")
	if _, err := f.svc.VerifyEmail(ctx, email, "111111"); err != nil {
		t.Fatalf("verify email: %v", err)
	}
	f.secrets.codes = append(f.secrets.codes, "222222")
	if err := f.svc.SendPhoneOTP(ctx, identity.ID, "+14155550123"); err != nil {
		t.Fatalf("send phone otp: %v", err)
	}
	if _, err := f.svc.VerifyPhoneOTP(ctx, identity.ID, "+14155550123", "222222"); err != nil {
		t.Fatalf("verify phone otp: %v", err)
	}
	return f.repo.get(t, email)
}
