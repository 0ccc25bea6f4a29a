package wheelapi

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const LoginFulfilledMessage = "authenticated"

func LoginChannel(token string) string {
	return fmt.Sprintf("login_ch@%s", token)
}

// LoginPublisher announces fulfilled login tokens on redis pub/sub.
type LoginPublisher struct {
	rdb *redis.Client
}

func NewLoginPublisher(rdb *redis.Client) *LoginPublisher {
	return &LoginPublisher{rdb: rdb}
}

func (p *LoginPublisher) LoginFulfilled(ctx context.Context, token string) error {
	return p.rdb.Publish(ctx, LoginChannel(token), LoginFulfilledMessage).Err()
}
