// Package models defines the client-side data types shared by the auth
// transport, the session store and the coordinator.
package models
