// Package catalogRepo gives the booking service read access to the service
// catalog, which is owned by the catalog API.
package catalogRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"localserve/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrServiceNotFound = errors.New("service not found")

type ServiceDirectory interface {
	GetService(ctx context.Context, serviceID string) (*models.Service, error)
}

type MongoServiceDirectory struct {
	coll *mongo.Collection
}

func NewMongoServiceDirectory(db *mongo.Database) *MongoServiceDirectory {
	return &MongoServiceDirectory{coll: db.Collection("services")}
}

func (d *MongoServiceDirectory) GetService(ctx context.Context, serviceID string) (*models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var svc models.Service
	err := d.coll.FindOne(ctx, bson.M{"id": serviceID}).Decode(&svc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching service %s: %w", serviceID, err)
	}
	return &svc, nil
}
