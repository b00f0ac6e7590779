// Package credstore хранит в памяти короткоживущие учётные данные:
// коды подтверждения почты и токены скачивания купленных пикеров.
//
// Две коллекции защищены независимыми мьютексами, поэтому чтение кодов
// не блокирует запись токенов. Блокировка удерживается только на время
// одной операции над map и никогда не захватывается на время обращения к БД.
package credstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/pickers-market/internal/clock"
)

// VerificationCode одноразовый код подтверждения, выданный на email.
type VerificationCode struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

// Expired сообщает, что срок действия кода истёк строго до now.
func (c VerificationCode) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

// Matches проверяет совпадение кода и срок его действия на момент now.
func (c VerificationCode) Matches(code string, now time.Time) bool {
	return c.Code == code && !c.Expired(now)
}

// DownloadToken токен доступа к файлу оплаченного заказа.
type DownloadToken struct {
	Token     string
	OrderID   uuid.UUID
	ExpiresAt time.Time
}

// Expired сообщает, что срок действия токена истёк строго до now.
func (t DownloadToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// SweepResult содержит число удалённых записей по коллекциям.
type SweepResult struct {
	Codes  int
	Tokens int
}

// Store реестр кодов подтверждения и токенов скачивания.
type Store struct {
	clock clock.Clock

	codesMu sync.Mutex
	codes   map[string]VerificationCode

	tokensMu sync.Mutex
	tokens   map[string]DownloadToken
	byOrder  map[uuid.UUID]string
}

// New создаёт пустое хранилище.
func New(c clock.Clock) *Store {
	return &Store{
		clock:   c,
		codes:   make(map[string]VerificationCode),
		tokens:  make(map[string]DownloadToken),
		byOrder: make(map[uuid.UUID]string),
	}
}

// PutCode сохраняет код для email, заменяя предыдущий.
func (s *Store) PutCode(email, code string, ttl time.Duration) {
	entry := VerificationCode{
		Email:     email,
		Code:      code,
		ExpiresAt: s.clock.Now().Add(ttl),
	}

	s.codesMu.Lock()
	s.codes[email] = entry
	s.codesMu.Unlock()
}

// GetCode возвращает текущий код для email без проверки срока действия.
// Срок проверяет вызывающий код в момент использования.
func (s *Store) GetCode(email string) (VerificationCode, bool) {
	s.codesMu.Lock()
	defer s.codesMu.Unlock()

	c, ok := s.codes[email]
	return c, ok
}

// RemoveCode удаляет код для email.
func (s *Store) RemoveCode(email string) {
	s.codesMu.Lock()
	delete(s.codes, email)
	s.codesMu.Unlock()
}

// ConsumeCode атомарно проверяет код и удаляет его при совпадении,
// чтобы один код нельзя было использовать дважды параллельными запросами.
func (s *Store) ConsumeCode(email, code string) bool {
	now := s.clock.Now()

	s.codesMu.Lock()
	defer s.codesMu.Unlock()

	c, ok := s.codes[email]
	if !ok || !c.Matches(code, now) {
		return false
	}
	delete(s.codes, email)
	return true
}

// PutToken сохраняет токен скачивания для заказа. Предыдущий токен
// этого заказа, если был, отзывается: на заказ действует один токен.
func (s *Store) PutToken(token string, orderID uuid.UUID, ttl time.Duration) DownloadToken {
	entry := DownloadToken{
		Token:     token,
		OrderID:   orderID,
		ExpiresAt: s.clock.Now().Add(ttl),
	}

	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	s.putTokenLocked(entry)
	return entry
}

func (s *Store) putTokenLocked(entry DownloadToken) {
	if prev, ok := s.byOrder[entry.OrderID]; ok && prev != entry.Token {
		delete(s.tokens, prev)
	}
	s.tokens[entry.Token] = entry
	s.byOrder[entry.OrderID] = entry.Token
}

// IssueToken возвращает действующий токен заказа или сохраняет новый,
// полученный от gen. Проверка и вставка выполняются под одной блокировкой,
// поэтому параллельные вызовы для одного заказа получают один и тот же токен.
func (s *Store) IssueToken(orderID uuid.UUID, gen func() (string, error), ttl time.Duration) (DownloadToken, error) {
	now := s.clock.Now()

	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	if token, ok := s.byOrder[orderID]; ok {
		if t, ok := s.tokens[token]; ok && !t.Expired(now) {
			return t, nil
		}
	}

	token, err := gen()
	if err != nil {
		return DownloadToken{}, fmt.Errorf("generate download token: %w", err)
	}

	entry := DownloadToken{
		Token:     token,
		OrderID:   orderID,
		ExpiresAt: now.Add(ttl),
	}
	s.putTokenLocked(entry)
	return entry, nil
}

// GetToken возвращает токен без проверки срока действия.
func (s *Store) GetToken(token string) (DownloadToken, bool) {
	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	t, ok := s.tokens[token]
	return t, ok
}

// TokenForOrder возвращает действующий токен заказа.
func (s *Store) TokenForOrder(orderID uuid.UUID) (DownloadToken, bool) {
	now := s.clock.Now()

	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	token, ok := s.byOrder[orderID]
	if !ok {
		return DownloadToken{}, false
	}
	t, ok := s.tokens[token]
	if !ok || t.Expired(now) {
		return DownloadToken{}, false
	}
	return t, true
}

// ResolveToken возвращает действующий токен. При consume токен удаляется
// в той же критической секции, поэтому одноразовый токен сработает
// ровно для одного запроса.
func (s *Store) ResolveToken(token string, consume bool) (DownloadToken, bool) {
	now := s.clock.Now()

	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	t, ok := s.tokens[token]
	if !ok || t.Expired(now) {
		return DownloadToken{}, false
	}
	if consume {
		s.removeTokenLocked(token)
	}
	return t, true
}

// RemoveToken удаляет токен скачивания.
func (s *Store) RemoveToken(token string) {
	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	s.removeTokenLocked(token)
}

func (s *Store) removeTokenLocked(token string) {
	t, ok := s.tokens[token]
	if !ok {
		return
	}
	delete(s.tokens, token)
	if s.byOrder[t.OrderID] == token {
		delete(s.byOrder, t.OrderID)
	}
}

// SweepExpired удаляет из обеих коллекций записи, срок которых истёк
// строго до текущего момента. Коллекции обрабатываются по очереди под
// своими блокировками, так что вставка во время чистки не теряется.
func (s *Store) SweepExpired() SweepResult {
	now := s.clock.Now()
	var res SweepResult

	s.codesMu.Lock()
	for email, c := range s.codes {
		if c.Expired(now) {
			delete(s.codes, email)
			res.Codes++
		}
	}
	s.codesMu.Unlock()

	s.tokensMu.Lock()
	for token, t := range s.tokens {
		if t.Expired(now) {
			s.removeTokenLocked(token)
			res.Tokens++
		}
	}
	s.tokensMu.Unlock()

	return res
}

// Len возвращает текущее число кодов и токенов.
func (s *Store) Len() (codes, tokens int) {
	s.codesMu.Lock()
	codes = len(s.codes)
	s.codesMu.Unlock()

	s.tokensMu.Lock()
	tokens = len(s.tokens)
	s.tokensMu.Unlock()

	return codes, tokens
}
