package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
)

const vendorColumns = `id, user_id, shop_name, business_type, status, category_id, business_address,
	contact_email, contact_phone, rejection_reason, approved_at, created_at, updated_at`

func scanVendor(row interface{ Scan(...any) error }, v *models.Vendor) error {
	var shopName, contactEmail, rejection sql.NullString
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&shopName,
		&v.BusinessType,
		&v.Status,
		&v.CategoryID,
		&v.BusinessAddress,
		&contactEmail,
		&v.ContactPhone,
		&rejection,
		&v.ApprovedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	v.ShopName = shopName.String
	v.ContactEmail = contactEmail.String
	v.RejectionReason = rejection.String
	return err
}

type VendorProfileParams struct {
	UserID          int64
	ShopName        string
	BusinessType    models.BusinessType
	CategoryID      *int64
	BusinessAddress string
	ContactEmail    string
	ContactPhone    string
}

func (p VendorProfileParams) Validate() error {
	if p.BusinessType != models.BusinessTypeIndividual && p.BusinessType != models.BusinessTypeBusiness {
		return fmt.Errorf("%w: business_type", database.ErrMissingField)
	}
	if strings.TrimSpace(p.BusinessAddress) == "" {
		return fmt.Errorf("%w: business_address", database.ErrMissingField)
	}
	if strings.TrimSpace(p.ContactPhone) == "" {
		return fmt.Errorf("%w: contact_phone", database.ErrMissingField)
	}
	return nil
}

// ApplyVendor registers the user as a seller. Applications are approved
// immediately; a rejected profile is re-activated with the new details.
func ApplyVendor(ctx context.Context, db *sql.DB, p VendorProfileParams) (*models.Vendor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	vendor := &models.Vendor{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var (
			existingID int64
			status     models.VendorStatus
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, status FROM vendors WHERE user_id = $1 FOR UPDATE`,
			p.UserID).Scan(&existingID, &status)

		switch {
		case err == sql.ErrNoRows:
			query := `
				INSERT INTO vendors (user_id, shop_name, business_type, status, category_id, business_address,
				                     contact_email, contact_phone, approved_at, created_at, updated_at)
				VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, NULLIF($7, ''), $8, NOW(), NOW(), NOW())
				RETURNING ` + vendorColumns
			row := tx.QueryRowContext(ctx, query,
				p.UserID, p.ShopName, p.BusinessType, models.VendorStatusApproved, p.CategoryID,
				p.BusinessAddress, p.ContactEmail, p.ContactPhone)
			if err := scanVendor(row, vendor); err != nil {
				return fmt.Errorf("create vendor: %w", err)
			}
		case err != nil:
			return fmt.Errorf("check existing vendor: %w", err)
		case status == models.VendorStatusRejected:
			query := `
				UPDATE vendors
				SET shop_name = NULLIF($1, ''), business_type = $2, status = $3, category_id = $4,
				    business_address = $5, contact_email = NULLIF($6, ''), contact_phone = $7,
				    rejection_reason = NULL, approved_at = NOW(), updated_at = NOW()
				WHERE id = $8
				RETURNING ` + vendorColumns
			row := tx.QueryRowContext(ctx, query,
				p.ShopName, p.BusinessType, models.VendorStatusApproved, p.CategoryID,
				p.BusinessAddress, p.ContactEmail, p.ContactPhone, existingID)
			if err := scanVendor(row, vendor); err != nil {
				return fmt.Errorf("reactivate vendor: %w", err)
			}
		default:
			return database.ErrVendorAlreadyExists
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE users SET role = $1, version = version + 1, updated_at = NOW() WHERE id = $2`,
			models.RoleVendor, p.UserID)
		if err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return database.ErrUserNotFound
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return vendor, nil
}

func GetVendorByUser(ctx context.Context, db *sql.DB, userID int64) (*models.Vendor, error) {
	vendor := &models.Vendor{}

	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE user_id = $1`

	if err := scanVendor(db.QueryRowContext(ctx, query, userID), vendor); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrVendorNotFound
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}

	return vendor, nil
}

// UpdateVendorProfile edits an approved vendor's own profile.
func UpdateVendorProfile(ctx context.Context, db *sql.DB, p VendorProfileParams) (*models.Vendor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	current, err := GetVendorByUser(ctx, db, p.UserID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.VendorStatusApproved {
		return nil, database.ErrVendorNotApproved
	}

	vendor := &models.Vendor{}
	query := `
		UPDATE vendors
		SET shop_name = NULLIF($1, ''), business_type = $2, category_id = $3, business_address = $4,
		    contact_email = NULLIF($5, ''), contact_phone = $6, updated_at = NOW()
		WHERE id = $7 AND status = $8
		RETURNING ` + vendorColumns

	row := db.QueryRowContext(ctx, query,
		p.ShopName, p.BusinessType, p.CategoryID, p.BusinessAddress,
		p.ContactEmail, p.ContactPhone, current.ID, models.VendorStatusApproved)
	if err := scanVendor(row, vendor); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrVendorNotApproved
		}
		return nil, fmt.Errorf("update vendor: %w", err)
	}

	return vendor, nil
}

// GetApprovedVendorID resolves the vendor id acting for userID.
func GetApprovedVendorID(ctx context.Context, db *sql.DB, userID int64) (int64, error) {
	var (
		id     int64
		status models.VendorStatus
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, status FROM vendors WHERE user_id = $1`, userID).Scan(&id, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, database.ErrVendorNotFound
		}
		return 0, fmt.Errorf("resolve vendor: %w", err)
	}
	if status != models.VendorStatusApproved {
		return 0, database.ErrVendorNotApproved
	}
	return id, nil
}
