package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"diecast-collector/internal/domain"
)

func TestCarService_MarkDelivered(t *testing.T) {
	due := time.Now().UTC().AddDate(0, 0, 2)
	cars := newMemCarRepo(domain.DiecastCar{ID: "c1", UserID: "u1", DeliveryDueDate: due, Status: "Shipped"})
	svc := NewCarService(nil, cars)

	if err := svc.MarkDelivered(context.Background(), "c1", "u1"); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	list, _ := svc.ListForUser(context.Background(), "u1")
	if len(list) != 1 || list[0].DeliveredDate == nil || list[0].Status != "Delivered" {
		t.Fatalf("unexpected car state: %+v", list)
	}

	// Autos de otro usuario no son alcanzables.
	if err := svc.MarkDelivered(context.Background(), "c1", "u2"); !errors.Is(err, ErrCarNotFound) {
		t.Fatalf("expected ErrCarNotFound, got %v", err)
	}
}
