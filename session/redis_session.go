package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

// Store holds WebAuthn ceremony state between the begin and finish calls.
type Store struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewStore(rdb redis.UniversalClient, ttl time.Duration) *Store { return &Store{rdb: rdb, ttl: ttl} }

// 三种仪式：邀请注册、已登录用户追加 passkey、登录
func inviteKey(token string) string  { return fmt.Sprintf("inv:webauthn:reg:invite:%s", token) }
func addKeyKey(userID string) string { return fmt.Sprintf("inv:webauthn:reg:user:%s", userID) }
func loginKey(sid string) string     { return fmt.Sprintf("inv:webauthn:login:%s", sid) }

func (s *Store) save(ctx context.Context, k string, sd *webauthn.SessionData) error {
	b, err := json.Marshal(sd)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, k, b, s.ttl).Err()
}

func (s *Store) load(ctx context.Context, k string) (*webauthn.SessionData, error) {
	b, err := s.rdb.Get(ctx, k).Bytes()
	if err != nil {
		return nil, err
	}
	var sd webauthn.SessionData
	if err := json.Unmarshal(b, &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

func (s *Store) del(ctx context.Context, k string) { _ = s.rdb.Del(ctx, k).Err() }

func (s *Store) SaveInviteReg(ctx context.Context, token string, sd *webauthn.SessionData) error {
	return s.save(ctx, inviteKey(token), sd)
}

func (s *Store) LoadInviteReg(ctx context.Context, token string) (*webauthn.SessionData, error) {
	return s.load(ctx, inviteKey(token))
}

func (s *Store) DelInviteReg(ctx context.Context, token string) { s.del(ctx, inviteKey(token)) }

func (s *Store) SaveAddKey(ctx context.Context, userID string, sd *webauthn.SessionData) error {
	return s.save(ctx, addKeyKey(userID), sd)
}

func (s *Store) LoadAddKey(ctx context.Context, userID string) (*webauthn.SessionData, error) {
	return s.load(ctx, addKeyKey(userID))
}

func (s *Store) DelAddKey(ctx context.Context, userID string) { s.del(ctx, addKeyKey(userID)) }

func (s *Store) SaveLogin(ctx context.Context, sid string, sd *webauthn.SessionData) error {
	return s.save(ctx, loginKey(sid), sd)
}

func (s *Store) LoadLogin(ctx context.Context, sid string) (*webauthn.SessionData, error) {
	return s.load(ctx, loginKey(sid))
}

func (s *Store) DelLogin(ctx context.Context, sid string) { s.del(ctx, loginKey(sid)) }
