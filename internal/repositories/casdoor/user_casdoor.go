package casdoor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
)

// CasdoorConfig holds the configuration for the Casdoor connection.
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

const (
	userCacheTTL   = 15 * time.Minute
	existsCacheTTL = time.Minute
)

// UserCasdoor reads user identities from Casdoor with a Redis read-through
// cache. The service never writes user records; Casdoor owns them.
type UserCasdoor struct {
	client *casdoorsdk.Client
	redis  *redis.Client
}

func NewUserCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &UserCasdoor{client: client, redis: redisClient}
}

// lookup runs the cache-then-Casdoor read path shared by GetByID and
// GetByEmail. Both keys for the resolved user are refreshed on a hit against
// Casdoor so either access path stays warm.
func (u *UserCasdoor) lookup(ctx context.Context, cacheKey string, fetch func() (*casdoorsdk.User, error), missErr error) (*models.User, error) {
	if cached := u.cachedUser(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	casdoorUser, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("casdoor lookup failed: %w", err)
	}
	if casdoorUser == nil {
		return nil, missErr
	}

	user := u.toModel(casdoorUser)
	u.storeUser(ctx, user)
	return user, nil
}

func (u *UserCasdoor) cachedUser(ctx context.Context, key string) *models.User {
	if u.redis == nil {
		return nil
	}

	data, err := u.redis.Get(ctx, "user:"+key).Bytes()
	if err != nil {
		return nil
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil
	}
	return &user
}

// storeUser caches the user under both its id and email keys. Failures are
// ignored; the next read just goes to Casdoor again.
func (u *UserCasdoor) storeUser(ctx context.Context, user *models.User) {
	if u.redis == nil || user == nil {
		return
	}

	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	u.redis.Set(ctx, "user:id:"+user.ID, data, userCacheTTL)
	if user.Email != "" {
		u.redis.Set(ctx, "user:email:"+user.Email, data, userCacheTTL)
	}
}

// toModel maps a Casdoor record onto the local user model.
func (u *UserCasdoor) toModel(casdoorUser *casdoorsdk.User) *models.User {
	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	return &models.User{
		ID:            casdoorUser.Id,
		FullName:      casdoorUser.DisplayName,
		Email:         casdoorUser.Email,
		Role:          resolveRole(casdoorUser),
		AvatarURL:     &casdoorUser.Avatar,
		EmailVerified: casdoorUser.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// resolveRole collapses Casdoor role assignments to the two roles the
// platform distinguishes. Admin wins over any other assignment.
func resolveRole(casdoorUser *casdoorsdk.User) models.UserRole {
	if casdoorUser.IsAdmin {
		return models.RoleAdmin
	}
	for _, role := range casdoorUser.Roles {
		switch strings.ToLower(role.Name) {
		case "admin", "administrator":
			return models.RoleAdmin
		}
	}
	return models.RoleStudent
}

func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	return u.lookup(ctx, "id:"+id,
		func() (*casdoorsdk.User, error) { return u.client.GetUserByUserId(id) },
		fmt.Errorf("user %s: %w", id, repositories.ErrNotFound))
}

func (u *UserCasdoor) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return u.lookup(ctx, "email:"+email,
		func() (*casdoorsdk.User, error) { return u.client.GetUserByEmail(email) },
		fmt.Errorf("user with email %s: %w", email, repositories.ErrNotFound))
}

// ExistsByID checks user existence. Answers are cached for one minute only
// so deactivations propagate quickly.
func (u *UserCasdoor) ExistsByID(ctx context.Context, id string) (bool, error) {
	cacheKey := "user:exists:id:" + id
	if u.redis != nil {
		if cached, err := u.redis.Get(ctx, cacheKey).Result(); err == nil {
			if exists, err := strconv.ParseBool(cached); err == nil {
				return exists, nil
			}
		}
	}

	user, err := u.client.GetUser(id)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	exists := user != nil

	if u.redis != nil {
		u.redis.Set(ctx, cacheKey, strconv.FormatBool(exists), existsCacheTTL)
	}
	return exists, nil
}

// HasRole reports whether the user's resolved role matches.
func (u *UserCasdoor) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, err := u.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.Role == role, nil
}

// List pages through the Casdoor organization, optionally filtered by email.
func (u *UserCasdoor) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 10
	} else if limit > 100 {
		limit = 100
	}

	// Casdoor pages are 1-indexed
	page := filters.Offset/limit + 1

	queryMap := map[string]string{}
	if filters.Query != "" {
		queryMap["field"] = "email"
		queryMap["value"] = filters.Query
	}

	casdoorUsers, count, err := u.client.GetPaginationUsers(page, limit, queryMap)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users from Casdoor: %w", err)
	}

	users := make([]*models.User, 0, len(casdoorUsers))
	for _, casdoorUser := range casdoorUsers {
		user := u.toModel(casdoorUser)
		users = append(users, user)
		u.storeUser(ctx, user)
	}
	return users, int64(count), nil
}
