package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/clock"
	"github.com/mmeshcher/pickers-market/internal/credstore"
	"github.com/mmeshcher/pickers-market/internal/model"
	"github.com/mmeshcher/pickers-market/internal/repository"
	"github.com/mmeshcher/pickers-market/internal/storage"
)

var epoch = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type stubRepo struct {
	usersByEmail map[string]*model.User
	usersByID    map[uuid.UUID]*model.User
	createErr    error

	pickers   map[uuid.UUID]*model.Picker
	created   []*model.Picker
	listTotal int64

	orders map[uuid.UUID]*model.OrderView
	err    error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		usersByEmail: map[string]*model.User{},
		usersByID:    map[uuid.UUID]*model.User{},
		pickers:      map[uuid.UUID]*model.Picker{},
		orders:       map[uuid.UUID]*model.OrderView{},
	}
}

func (s *stubRepo) addUser(email string, role model.UserRole) *model.User {
	u := &model.User{ID: uuid.New(), Email: email, Name: "user", Role: role}
	s.usersByEmail[email] = u
	s.usersByID[u.ID] = u
	return u
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(_ context.Context, u *model.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.usersByEmail[u.Email] = u
	s.usersByID[u.ID] = u
	return nil
}

func (s *stubRepo) GetUserByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.usersByID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *stubRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.usersByEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *stubRepo) CreatePicker(_ context.Context, p *model.Picker) error {
	s.created = append(s.created, p)
	s.pickers[p.ID] = p
	return nil
}

func (s *stubRepo) GetPicker(_ context.Context, id uuid.UUID, activeOnly bool) (*model.Picker, error) {
	p, ok := s.pickers[id]
	if !ok || (activeOnly && p.Status != model.PickerStatusActive) {
		return nil, repository.ErrPickerNotFound
	}
	return p, nil
}

func (s *stubRepo) ListActivePickers(_ context.Context, _ string, _ model.Page) ([]model.Picker, int64, error) {
	return nil, s.listTotal, s.err
}

func (s *stubRepo) DeactivatePicker(_ context.Context, developerID, pickerID uuid.UUID) error {
	p, ok := s.pickers[pickerID]
	if !ok || p.DeveloperID != developerID {
		return repository.ErrPickerNotFound
	}
	p.Status = model.PickerStatusInactive
	return nil
}

func (s *stubRepo) GetOrder(_ context.Context, buyerID, orderID uuid.UUID) (*model.OrderView, error) {
	o, ok := s.orders[orderID]
	if !ok || o.BuyerID != buyerID {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (s *stubRepo) ListOrders(_ context.Context, _ uuid.UUID, _ *model.OrderStatus, _ model.Page) ([]model.OrderView, int64, error) {
	return nil, 0, s.err
}

func (s *stubRepo) GetCompletedOrderPicker(_ context.Context, orderID uuid.UUID) (*model.Picker, error) {
	o, ok := s.orders[orderID]
	if !ok || o.Status != model.OrderStatusCompleted {
		return nil, repository.ErrPickerNotFound
	}
	p, ok := s.pickers[o.PickerID]
	if !ok {
		return nil, repository.ErrPickerNotFound
	}
	return p, nil
}

type stubPurchaser struct {
	method model.PaymentMethod
	order  *model.Order
	err    error
}

func (s *stubPurchaser) Purchase(_ context.Context, buyerID, pickerID uuid.UUID, method model.PaymentMethod) (*model.Order, error) {
	s.method = method
	if s.err != nil {
		return nil, s.err
	}
	return &model.Order{ID: uuid.New(), BuyerID: buyerID, PickerID: pickerID, Method: method}, nil
}

type stubTokens struct{}

func (stubTokens) Issue(userID uuid.UUID) (string, error) { return "token-" + userID.String(), nil }

type stubMailer struct {
	codes map[string]string
	err   error
}

func (m *stubMailer) SendVerificationCode(_ context.Context, email, code string) error {
	if m.err != nil {
		return m.err
	}
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[email] = code
	return nil
}

type testEnv struct {
	svc    *Service
	repo   *stubRepo
	clock  *clock.FakeClock
	creds  *credstore.Store
	mailer *stubMailer
	orders *stubPurchaser
	files  *storage.LocalStore
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	c := clock.Fake(epoch)
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		repo:   newStubRepo(),
		clock:  c,
		creds:  credstore.New(c),
		mailer: &stubMailer{},
		orders: &stubPurchaser{},
		files:  files,
	}
	env.svc = NewService(Deps{
		Repo:        env.repo,
		Orders:      env.orders,
		Credentials: env.creds,
		Tokens:      stubTokens{},
		Files:       files,
		Mailer:      env.mailer,
		Clock:       c,
		Logger:      zap.NewNop(),
	}, opts)
	return env
}

func TestRandomValues(t *testing.T) {
	for range 100 {
		code, err := newVerificationCode()
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[1-9][0-9]{5}$`), code)
	}

	wallet, err := newWalletAddress()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^0x[0-9a-f]{40}$`), wallet)

	a, err := newDownloadToken()
	require.NoError(t, err)
	b, err := newDownloadToken()
	require.NoError(t, err)
	assert.Len(t, a, 40)
	assert.NotEqual(t, a, b)
}

func TestRegisterAndVerify(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	u, err := env.svc.Register(ctx, "dev@example.com", "Dev", "dev")
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleDeveloper, u.Role)
	assert.Zero(t, u.Balance)
	assert.True(t, strings.HasPrefix(u.WalletAddress, "0x"))

	code := env.mailer.codes["dev@example.com"]
	require.NotEmpty(t, code)

	_, _, err = env.svc.Verify(ctx, "dev@example.com", "000000")
	assert.ErrorIs(t, err, model.ErrBadRequest)

	token, verified, err := env.svc.Verify(ctx, "dev@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, u.ID, verified.ID)
	assert.Equal(t, "token-"+u.ID.String(), token)

	_, _, err = env.svc.Verify(ctx, "dev@example.com", code)
	assert.ErrorIs(t, err, model.ErrBadRequest, "code is single use")
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.repo.addUser("taken@example.com", model.UserRoleGeneral)

	tests := []struct {
		name  string
		email string
		uname string
		role  string
		kind  error
	}{
		{name: "bad email", email: "nope", uname: "a", role: "gen", kind: model.ErrBadRequest},
		{name: "empty name", email: "a@example.com", uname: " ", role: "gen", kind: model.ErrBadRequest},
		{name: "bad role", email: "a@example.com", uname: "a", role: "admin", kind: model.ErrBadRequest},
		{name: "duplicate", email: "taken@example.com", uname: "a", role: "gen", kind: model.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Register(context.Background(), tt.email, tt.uname, tt.role)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestRegister_RaceOnInsertIsConflict(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.repo.createErr = repository.ErrUserExists

	_, err := env.svc.Register(context.Background(), "a@example.com", "a", "gen")
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestVerify_ExpiredCodeRejectedBeforeSweep(t *testing.T) {
	env := newTestEnv(t, Options{VerificationCodeTTL: 5 * time.Minute})
	env.repo.addUser("a@example.com", model.UserRoleGeneral)
	env.creds.PutCode("a@example.com", "123456", 5*time.Minute)

	env.clock.Advance(6 * time.Minute)

	_, _, err := env.svc.Verify(context.Background(), "a@example.com", "123456")
	require.ErrorIs(t, err, model.ErrBadRequest)
	assert.Equal(t, "invalid or expired verification code", model.PublicMessage(err))
}

func TestVerify_StorageFailureKeepsCode(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	u := env.repo.addUser("a@example.com", model.UserRoleGeneral)
	env.creds.PutCode("a@example.com", "123456", 5*time.Minute)

	env.repo.err = errors.New("conn reset by peer")
	_, _, err := env.svc.Verify(ctx, "a@example.com", "123456")
	require.ErrorIs(t, err, model.ErrPersistence)

	_, ok := env.creds.GetCode("a@example.com")
	require.True(t, ok, "code survives a failed user lookup")

	env.repo.err = nil
	_, got, err := env.svc.Verify(ctx, "a@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, ok = env.creds.GetCode("a@example.com")
	assert.False(t, ok, "code is consumed after success")
}

func TestResendCode_InvalidatesPrevious(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.repo.addUser("a@example.com", model.UserRoleGeneral)
	env.creds.PutCode("a@example.com", "111111", time.Minute)

	require.NoError(t, env.svc.ResendCode(context.Background(), "a@example.com"))
	fresh := env.mailer.codes["a@example.com"]

	if fresh != "111111" {
		_, _, err := env.svc.Verify(context.Background(), "a@example.com", "111111")
		assert.ErrorIs(t, err, model.ErrBadRequest)
	}
	_, _, err := env.svc.Verify(context.Background(), "a@example.com", fresh)
	assert.NoError(t, err)

	assert.ErrorIs(t, env.svc.ResendCode(context.Background(), "ghost@example.com"), model.ErrNotFound)
}

func TestRegister_MailerFailureDropsCode(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.mailer.err = errors.New("smtp down")

	_, err := env.svc.Register(context.Background(), "a@example.com", "a", "gen")
	require.Error(t, err)

	codes, _ := env.creds.Len()
	assert.Zero(t, codes)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, Options{})
	u := env.repo.addUser("a@example.com", model.UserRoleGeneral)

	token, got, err := env.svc.Login(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, token)

	_, _, err = env.svc.Login(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProfile_PersistenceErrorIsGeneric(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.repo.err = errors.New("pq: relation users does not exist")

	_, err := env.svc.Profile(context.Background(), uuid.New())
	require.ErrorIs(t, err, model.ErrPersistence)
	assert.Equal(t, "database error", model.PublicMessage(err))
}

func TestUploadPicker(t *testing.T) {
	env := newTestEnv(t, Options{})
	dev := env.repo.addUser("dev@example.com", model.UserRoleDeveloper)
	gen := env.repo.addUser("gen@example.com", model.UserRoleGeneral)
	ctx := context.Background()

	valid := func() PickerUpload {
		return PickerUpload{
			Alias:       "Color Picker",
			Description: "Picks colors",
			Version:     "1.0.0",
			Price:       500,
			File:        &Upload{Name: "picker.zip", Reader: strings.NewReader("zip")},
			Image:       &Upload{Name: "icon.png", Reader: strings.NewReader("png")},
		}
	}

	_, err := env.svc.UploadPicker(ctx, gen.ID, valid())
	assert.ErrorIs(t, err, model.ErrForbidden)

	in := valid()
	in.File = nil
	_, err = env.svc.UploadPicker(ctx, dev.ID, in)
	assert.ErrorIs(t, err, model.ErrBadRequest)

	in = valid()
	in.Price = -1
	_, err = env.svc.UploadPicker(ctx, dev.ID, in)
	assert.ErrorIs(t, err, model.ErrBadRequest)

	p, err := env.svc.UploadPicker(ctx, dev.ID, valid())
	require.NoError(t, err)
	assert.Equal(t, model.PickerStatusActive, p.Status)
	assert.True(t, strings.HasPrefix(p.FilePath, storage.KindArtifact+"/"))
	assert.True(t, strings.HasPrefix(p.ImagePath, storage.KindImage+"/"))
	require.Len(t, env.repo.created, 1)
}

func TestListPickers_EmptyPage(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.repo.listTotal = 25

	res, err := env.svc.ListPickers(context.Background(), "", model.NewPage(2, 10))
	require.NoError(t, err)
	assert.NotNil(t, res.Pickers)
	assert.True(t, res.HasNext)
}

func TestDeactivatePicker_OtherDeveloper(t *testing.T) {
	env := newTestEnv(t, Options{})
	p := &model.Picker{ID: uuid.New(), DeveloperID: uuid.New(), Status: model.PickerStatusActive}
	env.repo.pickers[p.ID] = p

	err := env.svc.DeactivatePicker(context.Background(), uuid.New(), p.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, env.svc.DeactivatePicker(context.Background(), p.DeveloperID, p.ID))
	_, err = env.svc.GetPicker(context.Background(), p.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateOrder_ParsesMethod(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.svc.CreateOrder(context.Background(), uuid.New(), uuid.New(), "premium")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentInternalBalance, env.orders.method)

	_, err = env.svc.CreateOrder(context.Background(), uuid.New(), uuid.New(), "cash")
	assert.ErrorIs(t, err, model.ErrBadRequest)
}

func TestListOrders_InvalidStatus(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.svc.ListOrders(context.Background(), uuid.New(), "failed", model.NewPage(1, 10))
	assert.ErrorIs(t, err, model.ErrBadRequest)

	res, err := env.svc.ListOrders(context.Background(), uuid.New(), "success", model.NewPage(1, 10))
	require.NoError(t, err)
	assert.NotNil(t, res.Orders)
}

func (e *testEnv) addPaidOrder(t *testing.T, status model.OrderStatus) (buyerID uuid.UUID, orderID uuid.UUID) {
	t.Helper()
	key, err := e.files.Save(context.Background(), storage.KindArtifact, "picker.zip", strings.NewReader("artifact"))
	require.NoError(t, err)

	p := &model.Picker{ID: uuid.New(), DeveloperID: uuid.New(), Status: model.PickerStatusActive, FilePath: key}
	e.repo.pickers[p.ID] = p

	o := &model.OrderView{Order: model.Order{ID: uuid.New(), BuyerID: uuid.New(), PickerID: p.ID, Status: status}}
	e.repo.orders[o.ID] = o
	return o.BuyerID, o.ID
}

func TestIssueDownloadToken(t *testing.T) {
	env := newTestEnv(t, Options{DownloadTokenTTL: time.Hour})
	ctx := context.Background()
	buyer, orderID := env.addPaidOrder(t, model.OrderStatusCompleted)

	_, err := env.svc.IssueDownloadToken(ctx, uuid.New(), orderID)
	assert.ErrorIs(t, err, model.ErrNotFound, "foreign order")

	tok, err := env.svc.IssueDownloadToken(ctx, buyer, orderID)
	require.NoError(t, err)
	assert.Len(t, tok.Token, 40)
	assert.Equal(t, epoch.Add(time.Hour), tok.ExpiresAt)

	again, err := env.svc.IssueDownloadToken(ctx, buyer, orderID)
	require.NoError(t, err)
	assert.Equal(t, tok.Token, again.Token, "live token is reused")

	env.clock.Advance(2 * time.Hour)
	fresh, err := env.svc.IssueDownloadToken(ctx, buyer, orderID)
	require.NoError(t, err)
	assert.NotEqual(t, tok.Token, fresh.Token)

	pendingBuyer, pendingOrder := env.addPaidOrder(t, model.OrderStatusPending)
	_, err = env.svc.IssueDownloadToken(ctx, pendingBuyer, pendingOrder)
	assert.ErrorIs(t, err, model.ErrBadRequest)
}

func TestIssueDownloadToken_ConcurrentRequestsAllResolve(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	buyer, orderID := env.addPaidOrder(t, model.OrderStatusCompleted)

	tokens := make([]string, 16)
	var wg sync.WaitGroup
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := env.svc.IssueDownloadToken(ctx, buyer, orderID)
			if assert.NoError(t, err) {
				tokens[i] = tok.Token
			}
		}()
	}
	wg.Wait()

	for _, tok := range tokens {
		p, err := env.svc.ResolveDownload(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, env.repo.orders[orderID].PickerID, p.ID)
	}
}

func TestResolveDownload_ReusableByDefault(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	buyer, orderID := env.addPaidOrder(t, model.OrderStatusCompleted)

	tok, err := env.svc.IssueDownloadToken(ctx, buyer, orderID)
	require.NoError(t, err)

	for range 2 {
		p, err := env.svc.ResolveDownload(ctx, tok.Token)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		require.NoError(t, env.svc.ServeDownload(rec, httptest.NewRequest(http.MethodGet, "/download", nil), p))
		assert.Equal(t, "artifact", rec.Body.String())
	}

	_, err = env.svc.ResolveDownload(ctx, "")
	assert.ErrorIs(t, err, model.ErrBadRequest)
	_, err = env.svc.ResolveDownload(ctx, "unknown")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestResolveDownload_SingleUse(t *testing.T) {
	env := newTestEnv(t, Options{DownloadTokenSingleUse: true})
	ctx := context.Background()
	buyer, orderID := env.addPaidOrder(t, model.OrderStatusCompleted)

	tok, err := env.svc.IssueDownloadToken(ctx, buyer, orderID)
	require.NoError(t, err)

	_, err = env.svc.ResolveDownload(ctx, tok.Token)
	require.NoError(t, err)
	_, err = env.svc.ResolveDownload(ctx, tok.Token)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestResolveDownload_Expired(t *testing.T) {
	env := newTestEnv(t, Options{DownloadTokenTTL: time.Minute})
	ctx := context.Background()
	buyer, orderID := env.addPaidOrder(t, model.OrderStatusCompleted)

	tok, err := env.svc.IssueDownloadToken(ctx, buyer, orderID)
	require.NoError(t, err)

	env.clock.Advance(time.Minute + time.Second)
	_, err = env.svc.ResolveDownload(ctx, tok.Token)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestServeDownload_MissingFile(t *testing.T) {
	env := newTestEnv(t, Options{})
	p := &model.Picker{FilePath: "pickers/absent.zip"}

	err := env.svc.ServeDownload(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/download", nil), p)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
