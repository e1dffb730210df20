package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"kasirinaja/backoffice/internal/apiclient"
	"kasirinaja/backoffice/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLength = 8

func userPath(id domain.ID, suffix string) string {
	return "/admin/users/" + url.PathEscape(id.String()) + suffix
}

func publicUsers(users []domain.User) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

func (s *Service) ListUsers(ctx context.Context) (domain.Sourced[[]domain.User], error) {
	return withFallback(ctx, s, "users",
		func(ctx context.Context) ([]domain.User, error) {
			users, err := listAll[domain.User](ctx, s.api, "/admin/users", nil)
			if err != nil {
				return nil, err
			}
			s.refreshUsers(ctx, users)
			return publicUsers(users), nil
		},
		func(ctx context.Context) ([]domain.User, error) {
			users, err := s.local.Users.List(ctx, nil)
			if err != nil {
				return nil, err
			}
			return publicUsers(users), nil
		},
	)
}

// refreshUsers writes API users through to the local copy while keeping the
// password hashes only the local copy has.
func (s *Service) refreshUsers(ctx context.Context, users []domain.User) {
	existing, err := s.local.Users.List(ctx, nil)
	if err != nil {
		log.Printf("[service] WARN: read local users before write-through: %v", err)
		return
	}
	hashes := make(map[domain.ID]string, len(existing))
	for _, u := range existing {
		hashes[u.ID] = u.PasswordHash
	}
	merged := make([]domain.User, 0, len(users))
	for _, u := range users {
		u.PasswordHash = hashes[u.ID]
		merged = append(merged, u)
	}
	writeThrough(ctx, s.local.Users, merged)
}

func validateRoles(roles []domain.Role) ([]domain.Role, error) {
	if len(roles) == 0 {
		return []domain.Role{domain.RoleCashier}, nil
	}
	out := make([]domain.Role, 0, len(roles))
	for _, role := range roles {
		parsed, ok := domain.ParseRole(string(role))
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
		}
		out = append(out, parsed)
	}
	return out, nil
}

// guardSuperAdmin lets only a super_admin grant the super_admin role or
// change a user who already holds it.
func (s *Service) guardSuperAdmin(ctx context.Context, roles []domain.Role, target domain.ID) error {
	touches := false
	for _, role := range roles {
		if role == domain.RoleSuperAdmin {
			touches = true
		}
	}
	if target != "" {
		if existing, err := s.local.Users.Get(ctx, target); err == nil && existing.HasRole(domain.RoleSuperAdmin) {
			touches = true
		}
	}
	if !touches {
		return nil
	}
	return s.requireRole(ctx, domain.RoleSuperAdmin)
}

func validateUser(req domain.UserRequest, creating bool) (domain.UserRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" {
		return req, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return req, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if creating && req.Password == "" {
		return req, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if req.Password != "" && len(req.Password) < minPasswordLength {
		return req, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	roles, err := validateRoles(req.Roles)
	if err != nil {
		return req, err
	}
	req.Roles = roles
	return req, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserRequest) (domain.Sourced[domain.User], error) {
	req, err := validateUser(req, true)
	if err != nil {
		return domain.Sourced[domain.User]{}, err
	}
	if err := s.guardSuperAdmin(ctx, req.Roles, ""); err != nil {
		return domain.Sourced[domain.User]{}, err
	}
	return withFallback(ctx, s, "users",
		func(ctx context.Context) (domain.User, error) {
			var created domain.User
			if err := s.api.Post(ctx, "/admin/users", req, &created); err != nil {
				return created, err
			}
			s.refreshUsers(ctx, []domain.User{created})
			return created.Public(), nil
		},
		func(ctx context.Context) (domain.User, error) {
			if _, err := s.local.FindUser(ctx, req.Email); err == nil {
				return domain.User{}, fmt.Errorf("%w: email %s is already registered", ErrInvalidInput, req.Email)
			}
			hash, err := hashPassword(req.Password)
			if err != nil {
				return domain.User{}, err
			}
			created, err := s.local.Users.Create(ctx, domain.User{Name: req.Name, Email: req.Email, Roles: req.Roles, PasswordHash: hash})
			if err != nil {
				return domain.User{}, err
			}
			s.logLocal(ctx, "create", "user", created.ID, created.Email)
			return created.Public(), nil
		},
	)
}

func (s *Service) UpdateUser(ctx context.Context, id domain.ID, req domain.UserRequest) (domain.Sourced[domain.User], error) {
	req, err := validateUser(req, false)
	if err != nil {
		return domain.Sourced[domain.User]{}, err
	}
	if err := s.guardSuperAdmin(ctx, req.Roles, id); err != nil {
		return domain.Sourced[domain.User]{}, err
	}
	return withFallback(ctx, s, "users",
		func(ctx context.Context) (domain.User, error) {
			var updated domain.User
			if err := s.api.Put(ctx, userPath(id, ""), req, &updated); err != nil {
				return updated, err
			}
			s.refreshUsers(ctx, []domain.User{updated})
			return updated.Public(), nil
		},
		func(ctx context.Context) (domain.User, error) {
			hash := ""
			if req.Password != "" {
				if hash, err = hashPassword(req.Password); err != nil {
					return domain.User{}, err
				}
			}
			updated, err := s.local.Users.Modify(ctx, id, func(u *domain.User) error {
				u.Name, u.Email, u.Roles = req.Name, req.Email, req.Roles
				if hash != "" {
					u.PasswordHash = hash
				}
				return nil
			})
			if err != nil {
				return domain.User{}, err
			}
			s.logLocal(ctx, "update", "user", id, updated.Email)
			return updated.Public(), nil
		},
	)
}

func (s *Service) DeleteUser(ctx context.Context, id domain.ID) (domain.Source, error) {
	if actor, ok := ActorFromContext(ctx); ok {
		if self, err := s.local.FindUser(ctx, actor.Username); err == nil && self.ID == id {
			return "", fmt.Errorf("%w: users cannot delete themselves", ErrInvalidInput)
		}
	}
	if err := s.guardSuperAdmin(ctx, nil, id); err != nil {
		return "", err
	}
	result, err := withFallback(ctx, s, "users",
		func(ctx context.Context) (struct{}, error) {
			if err := s.api.Delete(ctx, userPath(id, "")); err != nil {
				return struct{}{}, err
			}
			forget(ctx, s.local.Users, id)
			return struct{}{}, nil
		},
		func(ctx context.Context) (struct{}, error) {
			if err := s.local.Users.Delete(ctx, id); err != nil {
				return struct{}{}, err
			}
			s.logLocal(ctx, "delete", "user", id, "")
			return struct{}{}, nil
		},
	)
	return result.Source, err
}

// Roles lists assignable roles; the fixed role set stands in when the API
// cannot answer.
func (s *Service) Roles(ctx context.Context) (domain.Sourced[[]domain.Role], error) {
	return withFallback(ctx, s, "roles",
		func(ctx context.Context) ([]domain.Role, error) {
			var roles []domain.Role
			if err := s.api.Get(ctx, "/admin/roles", nil, &roles); err != nil {
				return nil, err
			}
			known := make([]domain.Role, 0, len(roles))
			for _, role := range roles {
				if role.Valid() {
					known = append(known, role)
				}
			}
			return known, nil
		},
		func(context.Context) ([]domain.Role, error) {
			return append([]domain.Role(nil), domain.AllRoles...), nil
		},
	)
}

// AssignRole adds role to a user. Unknown roles are rejected before any
// request is sent.
func (s *Service) AssignRole(ctx context.Context, id domain.ID, req domain.AssignRoleRequest) (domain.Sourced[domain.User], error) {
	role, ok := domain.ParseRole(string(req.Role))
	if !ok {
		return domain.Sourced[domain.User]{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}
	if err := s.guardSuperAdmin(ctx, []domain.Role{role}, id); err != nil {
		return domain.Sourced[domain.User]{}, err
	}
	return withFallback(ctx, s, "users",
		func(ctx context.Context) (domain.User, error) {
			var updated domain.User
			if err := s.api.Post(ctx, userPath(id, "/assign-role"), domain.AssignRoleRequest{Role: role}, &updated); err != nil {
				return updated, err
			}
			s.refreshUsers(ctx, []domain.User{updated})
			return updated.Public(), nil
		},
		func(ctx context.Context) (domain.User, error) {
			updated, err := s.local.Users.Modify(ctx, id, func(u *domain.User) error {
				if !u.HasRole(role) {
					u.Roles = append(u.Roles, role)
				}
				return nil
			})
			if err != nil {
				return domain.User{}, err
			}
			s.logLocal(ctx, "assign role", "user", id, string(role))
			return updated.Public(), nil
		},
	)
}

// Identity is a successfully authenticated login.
type Identity struct {
	Username      string
	Role          domain.Role
	UpstreamToken string
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	Token       string      `json:"token"`
	Role        domain.Role `json:"role"`
	User        struct {
		Name  string        `json:"name"`
		Email string        `json:"email"`
		Role  domain.Role   `json:"role"`
		Roles []domain.Role `json:"roles"`
	} `json:"user"`
}

func (r loginResponse) identity(username string) Identity {
	id := Identity{Username: username, UpstreamToken: defaultString(r.AccessToken, r.Token)}
	candidates := append([]domain.Role{r.Role, r.User.Role}, r.User.Roles...)
	user := domain.User{Roles: candidates}
	id.Role = user.PrimaryRole()
	if id.Role == "" {
		id.Role = domain.RoleCashier
	}
	return id
}

// Login authenticates against the tenant API's /auth/login. A rejection by
// the API is final; only an unreachable or failing API falls back to the
// local users.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.Sourced[Identity], error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return domain.Sourced[Identity]{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	var resp loginResponse
	err := s.api.Post(ctx, "/auth/login", map[string]string{
		"username": req.Username,
		"email":    req.Username,
		"password": req.Password,
	}, &resp)
	if err == nil {
		return domain.Sourced[Identity]{Data: resp.identity(req.Username), Source: domain.SourceAPI}, nil
	}

	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) && (statusErr.StatusCode == 401 || statusErr.StatusCode == 403 || statusErr.Rejected()) {
		return domain.Sourced[Identity]{}, ErrInvalidCredentials
	}
	if !apiclient.IsFallbackable(err) {
		return domain.Sourced[Identity]{}, err
	}

	log.Printf("[service] WARN: login: tenant api failed, checking local users: %v", err)
	s.metrics.Fallback("login")
	identity, localErr := s.Authenticate(ctx, req.Username, req.Password)
	if localErr != nil {
		return domain.Sourced[Identity]{}, localErr
	}
	return domain.Sourced[Identity]{Data: identity, Source: domain.SourceLocal, FallbackReason: apiclient.Reason(err)}, nil
}

// Authenticate checks a login against the local users' bcrypt hashes.
func (s *Service) Authenticate(ctx context.Context, username string, password string) (Identity, error) {
	user, err := s.local.FindUser(ctx, username)
	if err != nil || user.PasswordHash == "" {
		return Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	role := user.PrimaryRole()
	if role == "" {
		role = domain.RoleCashier
	}
	return Identity{Username: defaultString(user.Email, user.Name), Role: role}, nil
}

// EnsureSeedUsers creates an admin and a cashier in an empty local user
// list so the gateway can be signed into before it has ever reached the
// backend. Blank passwords fall back to development defaults.
func (s *Service) EnsureSeedUsers(ctx context.Context, adminPassword string, cashierPassword string) error {
	users, err := s.local.Users.List(ctx, nil)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	if adminPassword == "" || cashierPassword == "" {
		log.Println("[service] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	for _, seed := range []struct {
		name     string
		email    string
		password string
		role     domain.Role
	}{
		{"admin", "admin@kasirinaja.local", defaultString(adminPassword, "admin123"), domain.RoleAdmin},
		{"cashier", "cashier@kasirinaja.local", defaultString(cashierPassword, "cashier123"), domain.RoleCashier},
	} {
		hash, err := hashPassword(seed.password)
		if err != nil {
			return err
		}
		user := domain.User{Name: seed.name, Email: seed.email, Roles: []domain.Role{seed.role}, PasswordHash: hash}
		if _, err := s.local.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", seed.name, err)
		}
	}
	return nil
}
