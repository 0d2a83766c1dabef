package seed

import (
	"fmt"
	"time"

	"bloom/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// FakeReviews generates n extra reviews spread over the fixture users and
// products. The same seed always yields the same rows.
func FakeReviews(fx *Fixtures, n int, seed int64, now time.Time) []models.Review {
	if n <= 0 || len(fx.Users) == 0 || len(fx.Products) == 0 {
		return nil
	}

	faker := gofakeit.New(seed)
	now = now.UTC().Truncate(time.Second)

	reviews := make([]models.Review, 0, n)
	for i := 0; i < n; i++ {
		user := fx.Users[faker.Number(0, len(fx.Users)-1)]
		product := fx.Products[faker.Number(0, len(fx.Products)-1)]
		hoursBack := faker.Number(0, 90*24)

		reviews = append(reviews, models.Review{
			ID:        SeedID("fake-review", fmt.Sprintf("%d:%d", seed, i)),
			ProductID: product.ID,
			UserID:    user.ID,
			Rating:    faker.Number(1, 5),
			Comment:   faker.Sentence(faker.Number(6, 14)),
			CreatedAt: now.Add(-time.Duration(hoursBack) * time.Hour),
		})
	}
	return reviews
}
