package seed

import (
	"fmt"
	"math"
	"time"

	"bloom/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DevPassword is the password shared by every seeded user.
const DevPassword = "password123"

// idNamespace scopes the name-based UUIDs of seeded rows.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://bloom.local/seed"))

// SeedID derives the stable primary key of a seeded row.
func SeedID(kind, name string) string {
	return uuid.NewSHA1(idNamespace, []byte(kind+":"+name)).String()
}

// Fixtures is the full battery of sample rows, one slice per table.
type Fixtures struct {
	Products  []models.Product
	Users     []models.User
	Purchases []models.Purchase
	Reviews   []models.Review
	Coupons   []models.Coupon
}

// Batch is the rows destined for one table.
type Batch struct {
	Table string
	Rows  any
	Count int
}

// Batches lists the fixtures in insert order, parents before children.
func (f *Fixtures) Batches() []Batch {
	return []Batch{
		{Table: models.Product{}.TableName(), Rows: &f.Products, Count: len(f.Products)},
		{Table: models.User{}.TableName(), Rows: &f.Users, Count: len(f.Users)},
		{Table: models.Purchase{}.TableName(), Rows: &f.Purchases, Count: len(f.Purchases)},
		{Table: models.Review{}.TableName(), Rows: &f.Reviews, Count: len(f.Reviews)},
		{Table: models.Coupon{}.TableName(), Rows: &f.Coupons, Count: len(f.Coupons)},
	}
}

type productSpec struct {
	slug        string
	name        string
	description string
	price       float64
	category    string
	stock       int
}

var sampleProducts = []productSpec{
	{"sunrise-roses", "Sunrise Rose Bouquet", "A dozen long-stem roses in warm peach and coral tones.", 49.99, "bouquets", 25},
	{"lavender-dream", "Lavender Dream Arrangement", "Lavender, lisianthus and eucalyptus in a ceramic vase.", 39.50, "arrangements", 18},
	{"white-orchid", "Potted White Orchid", "Double-stem phalaenopsis orchid in a matte pot.", 34.00, "plants", 12},
	{"wildflower-club", "Wildflower Subscription", "Seasonal wildflowers delivered every month.", 29.99, "subscriptions", 100},
	{"succulent-trio", "Succulent Trio", "Three easy-care succulents in terracotta planters.", 24.00, "plants", 40},
	{"peony-luxe", "Peony Luxe Box", "Blush peonies arranged in a keepsake hat box.", 64.00, "bouquets", 8},
}

type userSpec struct {
	email    string
	name     string
	admin    bool
	verified bool
}

var sampleUsers = []userSpec{
	{"admin@bloom.com", "Bloom Admin", true, true},
	{"jane@example.com", "Jane Cooper", false, true},
	{"marcus@example.com", "Marcus Lee", false, true},
	{"priya@example.com", "Priya Shah", false, false},
}

type purchaseSpec struct {
	user, product string
	quantity      int
	status        string
	daysAgo       int
}

var samplePurchases = []purchaseSpec{
	{"jane@example.com", "sunrise-roses", 1, "delivered", 21},
	{"jane@example.com", "succulent-trio", 2, "delivered", 9},
	{"marcus@example.com", "peony-luxe", 1, "shipped", 2},
	{"priya@example.com", "wildflower-club", 1, "pending", 0},
}

type reviewSpec struct {
	user, product string
	rating        int
	comment       string
	daysAgo       int
}

var sampleReviews = []reviewSpec{
	{"jane@example.com", "sunrise-roses", 5, "Arrived fresh and lasted almost two weeks.", 14},
	{"jane@example.com", "succulent-trio", 4, "Cute planters, one succulent was a bit small.", 5},
	{"marcus@example.com", "peony-luxe", 5, "The hat box alone was worth it.", 1},
	{"marcus@example.com", "lavender-dream", 3, "Smelled great but the vase had a chip.", 30},
	{"priya@example.com", "white-orchid", 4, "Still blooming after a month.", 40},
}

type couponSpec struct {
	code     string
	discount int
	active   bool
	// expiresIn is relative to the seeding time; zero means no expiry.
	expiresIn time.Duration
}

var sampleCoupons = []couponSpec{
	{"WELCOME10", 10, true, 0},
	{"SPRING25", 25, true, 90 * 24 * time.Hour},
	{"EXPIRED5", 5, false, -7 * 24 * time.Hour},
}

// Catalog builds the fixed sample battery. Timestamps are relative to now and
// user passwords are hashed with the given bcrypt cost (0 means default).
func Catalog(now time.Time, passwordCost int) (*Fixtures, error) {
	if passwordCost == 0 {
		passwordCost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DevPassword), passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	now = now.UTC().Truncate(time.Second)
	fx := &Fixtures{}

	prices := make(map[string]float64, len(sampleProducts))
	for _, p := range sampleProducts {
		prices[p.slug] = p.price
		fx.Products = append(fx.Products, models.Product{
			ID:          SeedID("product", p.slug),
			Name:        p.name,
			Description: p.description,
			Price:       p.price,
			Category:    p.category,
			ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/800", p.slug),
			Stock:       p.stock,
		})
	}

	for _, u := range sampleUsers {
		fx.Users = append(fx.Users, models.User{
			ID:            SeedID("user", u.email),
			Email:         u.email,
			Name:          u.name,
			PasswordHash:  string(hash),
			IsAdmin:       u.admin,
			EmailVerified: u.verified,
		})
	}

	for i, p := range samplePurchases {
		fx.Purchases = append(fx.Purchases, models.Purchase{
			ID:          SeedID("purchase", fmt.Sprintf("%d", i)),
			UserID:      SeedID("user", p.user),
			ProductID:   SeedID("product", p.product),
			Quantity:    p.quantity,
			Total:       roundCents(prices[p.product] * float64(p.quantity)),
			Status:      p.status,
			PurchasedAt: now.AddDate(0, 0, -p.daysAgo),
		})
	}

	for i, r := range sampleReviews {
		fx.Reviews = append(fx.Reviews, models.Review{
			ID:        SeedID("review", fmt.Sprintf("%d", i)),
			ProductID: SeedID("product", r.product),
			UserID:    SeedID("user", r.user),
			Rating:    r.rating,
			Comment:   r.comment,
			CreatedAt: now.AddDate(0, 0, -r.daysAgo),
		})
	}

	for _, c := range sampleCoupons {
		coupon := models.Coupon{
			ID:              SeedID("coupon", c.code),
			Code:            c.code,
			DiscountPercent: c.discount,
			Active:          c.active,
		}
		if c.expiresIn != 0 {
			expires := now.Add(c.expiresIn)
			coupon.ExpiresAt = &expires
		}
		fx.Coupons = append(fx.Coupons, coupon)
	}

	return fx, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
