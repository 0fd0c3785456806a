package order

import (
	"testing"

	"nightbite-be/internal/auth"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		current Status
		want    Status
		ok      bool
	}{
		{StatusPlaced, StatusConfirmed, true},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusReadyForPickup, true},
		{StatusReadyForPickup, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusDelivered, true},
		{StatusDelivered, "", false},
		{StatusCancelled, "", false},
		{Status("LOST"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.current), func(t *testing.T) {
			got, ok := NextStatus(tt.current)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusDelivered))
	assert.True(t, IsTerminal(StatusCancelled))
	for _, s := range sequence[:len(sequence)-1] {
		assert.False(t, IsTerminal(s), s)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("READY_FOR_PICKUP")
	assert.NoError(t, err)
	assert.Equal(t, StatusReadyForPickup, s)

	s, err = ParseStatus("CANCELLED")
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, s)

	for _, raw := range []string{"", "ready_for_pickup", "SHIPPED"} {
		_, err := ParseStatus(raw)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition, raw)
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		mode    TransitionMode
		wantErr bool
	}{
		{"strict next", StatusPlaced, StatusConfirmed, ModeStrict, false},
		{"strict prep to ready", StatusPreparing, StatusReadyForPickup, ModeStrict, false},
		{"strict out to delivered", StatusOutForDelivery, StatusDelivered, ModeStrict, false},
		{"strict skip", StatusPlaced, StatusPreparing, ModeStrict, true},
		{"strict backward", StatusPreparing, StatusConfirmed, ModeStrict, true},
		{"strict same", StatusConfirmed, StatusConfirmed, ModeStrict, true},
		{"strict handover needs code", StatusReadyForPickup, StatusOutForDelivery, ModeStrict, true},
		{"strict cancel", StatusPlaced, StatusCancelled, ModeStrict, true},
		{"override skip", StatusPlaced, StatusReadyForPickup, ModeOverride, false},
		{"override handover", StatusReadyForPickup, StatusOutForDelivery, ModeOverride, false},
		{"override cancel", StatusPreparing, StatusCancelled, ModeOverride, false},
		{"override backward", StatusPreparing, StatusPlaced, ModeOverride, true},
		{"override same", StatusPreparing, StatusPreparing, ModeOverride, true},
		{"delivered is terminal", StatusDelivered, StatusCancelled, ModeOverride, true},
		{"cancelled is terminal", StatusCancelled, StatusPlaced, ModeOverride, true},
		{"unknown target", StatusPlaced, Status("EATEN"), ModeOverride, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to, tt.mode)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStatusTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, ModeOverride, ModeFor(auth.RoleAdmin))
	assert.Equal(t, ModeStrict, ModeFor(auth.RoleRestaurant))
	assert.Equal(t, ModeStrict, ModeFor(auth.RoleDeliveryPartner))
	assert.Equal(t, "strict", ModeStrict.String())
	assert.Equal(t, "override", ModeOverride.String())
}

func TestCanDrive(t *testing.T) {
	assert.True(t, CanDrive(auth.RoleRestaurant, StatusConfirmed))
	assert.True(t, CanDrive(auth.RoleRestaurant, StatusReadyForPickup))
	assert.False(t, CanDrive(auth.RoleRestaurant, StatusDelivered))
	assert.False(t, CanDrive(auth.RoleRestaurant, StatusCancelled))
	assert.True(t, CanDrive(auth.RoleDeliveryPartner, StatusDelivered))
	assert.False(t, CanDrive(auth.RoleDeliveryPartner, StatusPreparing))
	assert.True(t, CanDrive(auth.RoleSystem, StatusDelivered))
	assert.True(t, CanDrive(auth.RoleAdmin, StatusCancelled))
	assert.False(t, CanDrive(auth.RoleCustomer, StatusConfirmed))
}

func TestCanHandover(t *testing.T) {
	assert.True(t, CanHandover(auth.RoleRestaurant))
	assert.True(t, CanHandover(auth.RoleDeliveryPartner))
	assert.True(t, CanHandover(auth.RoleAdmin))
	assert.False(t, CanHandover(auth.RoleCustomer))
}

func TestIsOtherPartner(t *testing.T) {
	assigned := uint(30)
	o := &Order{DeliveryPartnerID: &assigned}

	assert.False(t, IsOtherPartner(Actor{ID: 30, Role: auth.RoleDeliveryPartner}, o))
	assert.True(t, IsOtherPartner(Actor{ID: 99, Role: auth.RoleDeliveryPartner}, o))
	assert.False(t, IsOtherPartner(Actor{ID: 99, Role: auth.RoleAdmin}, o))
	assert.False(t, IsOtherPartner(Actor{ID: 99, Role: auth.RoleDeliveryPartner}, &Order{}))
}

func TestCodesMatch(t *testing.T) {
	assert.True(t, codesMatch("482913", "482913"))
	assert.False(t, codesMatch("482913", "000000"))
	assert.False(t, codesMatch("482913", "48291"))
	assert.False(t, codesMatch("482913", "4829130"))
	assert.False(t, codesMatch("AbC123", "abc123"))
	assert.False(t, codesMatch("", ""))
}
