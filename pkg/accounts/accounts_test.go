package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/config"
	"github.com/mastermind064/RT06/pkg/database"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := database.Open(config.Config{DBDriver: "sqlite", DBDSN: ":memory:", DBAutoMigrate: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return gdb
}

func sampleRt() RtInput {
	return RtInput{RtNumber: "06", RwNumber: "01", VillageName: "Sukamaju", SubdistrictName: "Cibeunying", CityName: "Bandung", ProvinceName: "Jawa Barat"}
}

func TestCreateRtAndAuthenticate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rt, admin, err := CreateRt(ctx, db, sampleRt(), "ketua06", "rahasia123")
	if err != nil {
		t.Fatalf("create rt: %v", err)
	}
	if admin.Role != models.RoleAdmin || admin.RtID != rt.RtID {
		t.Fatalf("unexpected admin %+v", admin)
	}
	if _, _, err := CreateRt(ctx, db, sampleRt(), "other", "rahasia123"); !errors.Is(err, ErrRtExists) {
		t.Fatalf("expected ErrRtExists got %v", err)
	}
	other := sampleRt()
	other.RtNumber = "07"
	if _, _, err := CreateRt(ctx, db, other, "ketua06", "rahasia123"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken got %v", err)
	}

	if _, err := Authenticate(ctx, db, "ketua06", "salah"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials got %v", err)
	}
	u, err := Authenticate(ctx, db, " ketua06 ", "rahasia123")
	if err != nil || u.UserID != admin.UserID {
		t.Fatalf("authenticate: %v", err)
	}

	var events []models.EventRecord
	db.Where("rt_id = ? AND event_type = ?", rt.RtID, "RtCreated").Find(&events)
	if len(events) != 1 {
		t.Fatalf("expected one RtCreated event got %d", len(events))
	}
}

func TestCreateUserPlaceholderResident(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rt, admin, err := CreateRt(ctx, db, sampleRt(), "ketua06", "rahasia123")
	if err != nil {
		t.Fatal(err)
	}

	warga, err := CreateUser(ctx, db, rt.RtID, admin.UserID, UserInput{Username: "budi", Password: "budi123", Role: models.RoleWarga})
	if err != nil {
		t.Fatalf("create warga: %v", err)
	}
	if warga.ResidentID == nil {
		t.Fatal("warga should get a placeholder resident")
	}
	var res models.Resident
	if err := db.First(&res, "resident_id = ?", *warga.ResidentID).Error; err != nil {
		t.Fatal(err)
	}
	if res.ApprovalStatus != models.ApprovalDraft || res.RtID != rt.RtID {
		t.Fatalf("unexpected placeholder %+v", res)
	}

	bendahara, err := CreateUser(ctx, db, rt.RtID, admin.UserID, UserInput{Username: "bendahara", Password: "uang123", Role: models.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if bendahara.ResidentID != nil {
		t.Fatal("admin accounts get no placeholder resident")
	}

	foreign := uuid.New()
	if _, err := CreateUser(ctx, db, rt.RtID, admin.UserID, UserInput{Username: "sari", Password: "sari123", Role: models.RoleWarga, ResidentID: &foreign}); !errors.Is(err, ErrResidentNotInRt) {
		t.Fatalf("expected ErrResidentNotInRt got %v", err)
	}
	if _, err := CreateUser(ctx, db, rt.RtID, admin.UserID, UserInput{Username: "budi", Password: "budi123", Role: models.RoleWarga}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken got %v", err)
	}
	if _, err := CreateUser(ctx, db, rt.RtID, admin.UserID, UserInput{Username: "joko", Password: "123", Role: models.RoleWarga}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword got %v", err)
	}
}

func TestSetUserStatusIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rt, admin, _ := CreateRt(ctx, db, sampleRt(), "ketua06", "rahasia123")
	warga, err := CreateUser(ctx, db, rt.RtID, admin.UserID, UserInput{Username: "budi", Password: "budi123", Role: models.RoleWarga})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		u, err := SetUserStatus(ctx, db, rt.RtID, admin.UserID, warga.UserID, false)
		if err != nil || u.IsActive {
			t.Fatalf("deactivate #%d: %+v err=%v", i, u, err)
		}
	}
	var events []models.EventRecord
	db.Where("aggregate_id = ? AND event_type = ?", warga.UserID, "UserStatusUpdated").Find(&events)
	if len(events) != 1 || events[0].CausedByUserID != admin.UserID {
		t.Fatalf("expected one event caused by admin, got %+v", events)
	}
	if _, err := Authenticate(ctx, db, "budi", "budi123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive user must not log in, got %v", err)
	}
	if _, err := SetUserStatus(ctx, db, rt.RtID, admin.UserID, admin.UserID, false); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("admins are not managed here, got %v", err)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, admin, _ := CreateRt(ctx, db, sampleRt(), "ketua06", "rahasia123")

	raw, err := IssueRefreshToken(ctx, db, admin.UserID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	u, next, err := RotateRefreshToken(ctx, db, raw, time.Hour)
	if err != nil || u.UserID != admin.UserID || next == raw {
		t.Fatalf("rotate: user=%v next=%q err=%v", u, next, err)
	}
	if _, _, err := RotateRefreshToken(ctx, db, raw, time.Hour); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("old token must be revoked, got %v", err)
	}
	if err := RevokeRefreshToken(ctx, db, next); err != nil {
		t.Fatal(err)
	}
	if _, _, err := RotateRefreshToken(ctx, db, next, time.Hour); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("revoked token accepted: %v", err)
	}
}

func TestResetTokenSingleUse(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, admin, _ := CreateRt(ctx, db, sampleRt(), "ketua06", "rahasia123")

	raw, err := IssueResetToken(ctx, db, admin.UserID, 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := RedeemResetToken(ctx, db, raw, "baru12345"); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := Authenticate(ctx, db, "ketua06", "baru12345"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if err := RedeemResetToken(ctx, db, raw, "lagi12345"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token reused: %v", err)
	}

	expired, _ := IssueResetToken(ctx, db, admin.UserID, -time.Minute)
	if err := RedeemResetToken(ctx, db, expired, "lagi12345"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}
