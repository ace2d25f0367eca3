// seed fills the services collection with a demo catalog and prints bearer
// tokens for one user, one provider per catalog entry and an admin, so a
// local stack can be driven with bookingctl.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"localserve/config"
	"localserve/database"
	"localserve/models"
	"localserve/utils"

	"go.mongodb.org/mongo-driver/bson"
)

var serviceTypes = []string{"cleaning", "laundry", "plumbing"}

const providersPerService = 3

// demoServices builds perType providers for every service type. Ids are
// stable so re-seeding keeps existing bookings pointing at valid services.
func demoServices(types []string, perType int) []models.Service {
	var services []models.Service
	counter := 1
	for _, serviceType := range types {
		for i := 1; i <= perType; i++ {
			services = append(services, models.Service{
				ID:          fmt.Sprintf("svc-%s-%d", serviceType, i),
				ProviderID:  fmt.Sprintf("prov-%d", counter),
				ServiceName: fmt.Sprintf("%s by Provider %d", serviceType, counter),
			})
			counter++
		}
	}
	return services
}

func main() {
	config.LoadConfig()
	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	coll := database.Database().Collection("services")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	defer database.MongoClient.Disconnect(context.Background())

	// Clear the existing catalog.
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		log.Fatalf("Failed to clear services collection: %v", err)
	}

	services := demoServices(serviceTypes, providersPerService)
	docs := make([]interface{}, len(services))
	for i, s := range services {
		docs[i] = s
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		log.Fatalf("Failed to insert services: %v", err)
	}
	fmt.Printf("Inserted %d services into %s.services\n", len(services), config.AppConfig.DatabaseName)

	if config.AppConfig.JWTSecret == "" {
		fmt.Println("JWT_SECRET is not set, skipping tokens")
		return
	}
	printToken("user-1", models.RoleUser)
	printToken("admin", models.RoleAdmin)
	for _, s := range services {
		fmt.Printf("# %s (%s)\n", s.ServiceName, s.ID)
		printToken(s.ProviderID, models.RoleProvider)
	}
}

func printToken(subject, role string) {
	token, err := utils.GenerateToken(subject, role, 30*24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign token for %s: %v", subject, err)
	}
	fmt.Printf("%s %s %s\n", role, subject, token)
}
