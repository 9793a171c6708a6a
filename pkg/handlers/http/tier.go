package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/snapstyle/snapstyle-backend/pkg/common"
	"github.com/snapstyle/snapstyle-backend/pkg/domain"
)

//go:generate mockery --name=TierResolver --dir=. --output=./mocks --filename=tier_resolver_mock.go --case=underscore --with-expecter

// TierResolver looks up the caller's subscription tier. Account state
// lives outside this service, so the default implementation trusts the
// tier header stamped by the auth layer in front of us.
type TierResolver interface {
	Resolve(c *fiber.Ctx) string
}

type headerTierResolver struct{}

func NewHeaderTierResolver() TierResolver {
	return &headerTierResolver{}
}

func (r *headerTierResolver) Resolve(c *fiber.Ctx) string {
	tier := c.Get(common.UserTierHeader)
	switch tier {
	case domain.TierFree, domain.TierBasic, domain.TierPro, domain.TierUnlimited:
		return tier
	}
	return domain.TierFree
}

func userID(c *fiber.Ctx) string {
	return c.Get(common.UserIDHeader)
}
