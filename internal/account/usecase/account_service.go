package usecase

import (
	"context"
	"fmt"

	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"
	accountrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"

	"golang.org/x/oauth2"
)

// AccountService handles account lifecycle: creation on a successful OAuth
// exchange and reactivation on reconnect. The consent flow itself is hosted
// by the provider; only the code exchange lands here.
type AccountService interface {
	Connect(ctx context.Context, provider, email, code string) (*accountdomain.Account, error)
	List() ([]accountdomain.Account, error)
}

// accountService implements AccountService interface
type accountService struct {
	accounts accountrepo.AccountRepository
	tokens   accountrepo.TokenRepository
	configs  map[string]*oauth2.Config
}

// NewAccountService creates a new instance of accountService
func NewAccountService(
	accounts accountrepo.AccountRepository,
	tokens accountrepo.TokenRepository,
	configs map[string]*oauth2.Config,
) AccountService {
	return &accountService{
		accounts: accounts,
		tokens:   tokens,
		configs:  configs,
	}
}

func (s *accountService) Connect(ctx context.Context, provider, email, code string) (*accountdomain.Account, error) {
	cfg, ok := s.configs[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}

	account, err := s.accounts.FindByEmailAndProvider(email, provider)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &accountdomain.Account{
			Email:    email,
			Provider: provider,
			Active:   true,
		}
		if err := s.accounts.Create(account); err != nil {
			return nil, err
		}
	} else if !account.Active {
		if err := s.accounts.Reactivate(account.ID); err != nil {
			return nil, err
		}
		account.Active = true
	}

	set := &accountdomain.OAuthTokenSet{
		AccountID:    account.ID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		set.Scope = scope
	}
	if err := s.tokens.Upsert(set); err != nil {
		return nil, fmt.Errorf("persist token set: %w", err)
	}

	return account, nil
}

func (s *accountService) List() ([]accountdomain.Account, error) {
	return s.accounts.FindActive()
}
