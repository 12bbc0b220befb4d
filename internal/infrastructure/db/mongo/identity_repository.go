package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

const collectionIdentities = "identities"

// IdentityRepository is the Mongo credential store. Token-slot consumption and promotion
// are single FindOneAndUpdate calls whose filter carries the expected current state.
type IdentityRepository struct {
	col *mongo.Collection
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{col: db.Collection(collectionIdentities)}
}

type identityDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash,omitempty"`
	Role         string             `bson:"role"`
	Provider     string             `bson:"provider"`

	FirstName   string `bson:"first_name"`
	LastName    string `bson:"last_name"`
	PhoneNumber string `bson:"phone_number,omitempty"`
	Avatar      string `bson:"avatar,omitempty"`

	IsEmailVerified bool `bson:"email_verified"`
	IsPhoneVerified bool `bson:"phone_verified"`

	EmailOTP         string    `bson:"email_otp,omitempty"`
	EmailOTPExpiry   time.Time `bson:"email_otp_expiry,omitempty"`
	PhoneOTP         string    `bson:"phone_otp,omitempty"`
	PhoneOTPExpiry   time.Time `bson:"phone_otp_expiry,omitempty"`
	ResetTokenHash   string    `bson:"reset_token_hash,omitempty"`
	ResetTokenExpiry time.Time `bson:"reset_token_expiry,omitempty"`
	RefreshToken     string    `bson:"refresh_token,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toDoc(i *domain.Identity) identityDoc {
	return identityDoc{
		Email:            i.Email,
		PasswordHash:     i.PasswordHash,
		Role:             string(i.Role),
		Provider:         string(i.Provider),
		FirstName:        i.FirstName,
		LastName:         i.LastName,
		PhoneNumber:      i.PhoneNumber,
		Avatar:           i.Avatar,
		IsEmailVerified:  i.IsEmailVerified,
		IsPhoneVerified:  i.IsPhoneVerified,
		EmailOTP:         i.EmailOTP,
		EmailOTPExpiry:   i.EmailOTPExpiry,
		PhoneOTP:         i.PhoneOTP,
		PhoneOTPExpiry:   i.PhoneOTPExpiry,
		ResetTokenHash:   i.ResetTokenHash,
		ResetTokenExpiry: i.ResetTokenExpiry,
		RefreshToken:     i.RefreshToken,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

func (d *identityDoc) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:               d.ID.Hex(),
		Email:            d.Email,
		PasswordHash:     d.PasswordHash,
		Role:             domain.Role(d.Role),
		Provider:         domain.Provider(d.Provider),
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		PhoneNumber:      d.PhoneNumber,
		Avatar:           d.Avatar,
		IsEmailVerified:  d.IsEmailVerified,
		IsPhoneVerified:  d.IsPhoneVerified,
		EmailOTP:         d.EmailOTP,
		EmailOTPExpiry:   d.EmailOTPExpiry.UTC(),
		PhoneOTP:         d.PhoneOTP,
		PhoneOTPExpiry:   d.PhoneOTPExpiry.UTC(),
		ResetTokenHash:   d.ResetTokenHash,
		ResetTokenExpiry: d.ResetTokenExpiry.UTC(),
		RefreshToken:     d.RefreshToken,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toDoc(identity)
	doc.ID = primitive.NewObjectID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *IdentityRepository) FindByResetTokenHash(ctx context.Context, hash string) (*domain.Identity, error) {
	if hash == "" {
		return nil, domain.ErrIdentityNotFound
	}
	return r.findOne(ctx, bson.M{"reset_token_hash": hash})
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) SetEmailOTP(ctx context.Context, id, code string, expiry time.Time) error {
	return r.set(ctx, id, bson.M{"email_otp": code, "email_otp_expiry": expiry})
}

func (r *IdentityRepository) ConsumeEmailOTP(ctx context.Context, id, code string, now time.Time) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	return r.conditional(ctx, oid, emailOTPFilter(oid, code, now), bson.M{
		"$set":   bson.M{"email_verified": true, "updated_at": now},
		"$unset": bson.M{"email_otp": "", "email_otp_expiry": ""},
	})
}

func (r *IdentityRepository) SetPhoneOTP(ctx context.Context, id, phone, code string, expiry time.Time) error {
	return r.set(ctx, id, bson.M{"phone_number": phone, "phone_otp": code, "phone_otp_expiry": expiry})
}

func (r *IdentityRepository) ConsumePhoneOTP(ctx context.Context, id, phone, code string, now time.Time) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	return r.conditional(ctx, oid, phoneOTPFilter(oid, phone, code, now), bson.M{
		"$set":   bson.M{"phone_verified": true, "updated_at": now},
		"$unset": bson.M{"phone_otp": "", "phone_otp_expiry": ""},
	})
}

func (r *IdentityRepository) PromoteToUser(ctx context.Context, id string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	filter := bson.M{
		"_id":            oid,
		"role":           string(domain.RoleVisitor),
		"email_verified": true,
		"phone_verified": true,
	}
	return r.conditional(ctx, oid, filter, bson.M{
		"$set": bson.M{"role": string(domain.RoleUser), "updated_at": time.Now().UTC()},
	})
}

func (r *IdentityRepository) SetResetToken(ctx context.Context, id, hash string, expiry time.Time) error {
	return r.set(ctx, id, bson.M{"reset_token_hash": hash, "reset_token_expiry": expiry})
}

func (r *IdentityRepository) ConsumeResetToken(ctx context.Context, hash, passwordHash string, now time.Time) (*domain.Identity, error) {
	if hash == "" {
		return nil, domain.ErrStaleToken
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"password_hash": passwordHash, "updated_at": now},
		"$unset": bson.M{"reset_token_hash": "", "reset_token_expiry": "", "refresh_token": ""},
	}
	var doc identityDoc
	err := r.col.FindOneAndUpdate(ctx, resetTokenFilter(hash, now), update, afterUpdate()).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrStaleToken
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.set(ctx, id, bson.M{"refresh_token": token})
}

func (r *IdentityRepository) ClearRefreshToken(ctx context.Context, id, current string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrIdentityNotFound
	}
	if current == "" {
		return domain.ErrStaleToken
	}
	_, err = r.conditional(ctx, oid, bson.M{"_id": oid, "refresh_token": current}, bson.M{
		"$unset": bson.M{"refresh_token": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

func (r *IdentityRepository) UpdateName(ctx context.Context, id, firstName, lastName string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	return r.conditional(ctx, oid, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"first_name": firstName, "last_name": lastName, "updated_at": time.Now().UTC()},
	})
}

func (r *IdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.set(ctx, id, bson.M{"password_hash": passwordHash})
}

// EnsureIndexes creates the unique email index and the reset token lookup index.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reset_token_hash", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// set overwrites fields of one identity unconditionally (last write wins).
func (r *IdentityRepository) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrIdentityNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fields["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// conditional applies update when filter matches and returns the updated identity. When
// nothing matches it tells a missing identity apart from a stale expectation.
func (r *IdentityRepository) conditional(ctx context.Context, oid primitive.ObjectID, filter, update bson.M) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDoc
	err := r.col.FindOneAndUpdate(ctx, filter, update, afterUpdate()).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update identity: %w", err)
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("update identity: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrIdentityNotFound
	}
	return nil, domain.ErrStaleToken
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

// Expiry filters use $gte: a slot is still valid at exactly its expiry instant.

func emailOTPFilter(oid primitive.ObjectID, code string, now time.Time) bson.M {
	return bson.M{
		"_id":              oid,
		"email_verified":   false,
		"email_otp":        code,
		"email_otp_expiry": bson.M{"$gte": now},
	}
}

func phoneOTPFilter(oid primitive.ObjectID, phone, code string, now time.Time) bson.M {
	return bson.M{
		"_id":              oid,
		"phone_verified":   false,
		"phone_number":     phone,
		"phone_otp":        code,
		"phone_otp_expiry": bson.M{"$gte": now},
	}
}

func resetTokenFilter(hash string, now time.Time) bson.M {
	return bson.M{
		"reset_token_hash":   hash,
		"reset_token_expiry": bson.M{"$gte": now},
	}
}
