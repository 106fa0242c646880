package form_test

import (
	"context"
	"sync"

	"git.sr.ht/~jakintosh/authform/pkg/form"
)

type fakeUser struct {
	uid      string
	token    string
	tokenErr error
}

func (u *fakeUser) UID() string { return u.uid }

func (u *fakeUser) Token(ctx context.Context) (string, error) {
	return u.token, u.tokenErr
}

type fakeProvider struct {
	mu sync.Mutex

	user      *fakeUser
	err       error
	deleteErr error
	panicWith any
	// block, when set, holds every call until it is closed
	block   chan struct{}
	entered chan struct{}

	createCalls int
	authCalls   int
	deleted     []string
}

func (p *fakeProvider) wait() {
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.block != nil {
		<-p.block
	}
	if p.panicWith != nil {
		panic(p.panicWith)
	}
}

func (p *fakeProvider) CreateAccount(ctx context.Context, email string, password string) (form.UserHandle, error) {
	p.mu.Lock()
	p.createCalls++
	p.mu.Unlock()
	p.wait()
	if p.err != nil {
		return nil, p.err
	}
	return p.user, nil
}

func (p *fakeProvider) Authenticate(ctx context.Context, email string, password string) (form.UserHandle, error) {
	p.mu.Lock()
	p.authCalls++
	p.mu.Unlock()
	p.wait()
	if p.err != nil {
		return nil, p.err
	}
	return p.user, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createCalls + p.authCalls
}

// deletingProvider adds the optional AccountDeleter capability.
type deletingProvider struct {
	*fakeProvider
}

func (p deletingProvider) DeleteAccount(ctx context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, uid)
	return p.deleteErr
}

type fakeRegistrar struct {
	mu sync.Mutex

	registration form.Registration
	registerErr  error
	establishErr error
	panicWith    any

	registered  []string
	established []string
	tokens      []string
}

func (r *fakeRegistrar) RegisterNewUser(ctx context.Context, uid string, name string, email string) (form.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, uid)
	if r.panicWith != nil {
		panic(r.panicWith)
	}
	return r.registration, r.registerErr
}

func (r *fakeRegistrar) EstablishSession(ctx context.Context, email string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.established = append(r.established, email)
	r.tokens = append(r.tokens, token)
	return r.establishErr
}

func (r *fakeRegistrar) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered) + len(r.established)
}
