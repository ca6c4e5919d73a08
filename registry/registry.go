package registry

import (
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
)

// ServiceRegistry registers this process's endpoints with a service catalog.
type ServiceRegistry interface {
	// Register registers a service instance.
	// id: Unique identifier for this instance (e.g., serviceName + host + port).
	// name: Logical name of the service (e.g., "role-center-http").
	// check: Health check configuration, may be nil.
	Register(id, name, address string, port int, tags []string, check *consulapi.AgentServiceCheck) error

	// Deregister removes a service instance using its unique ID.
	Deregister(id string) error
}

// Instance is one registration made by Announce.
type Instance struct {
	ID    string
	Name  string
	Port  int
	Tags  []string
	Check *consulapi.AgentServiceCheck
}

// InstanceID is the registration id for name served on host:port.
func InstanceID(name, host string, port int) string {
	return name + "-" + host + "-" + strconv.Itoa(port)
}
