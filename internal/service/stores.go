package service

// Stores bundles the persistence backends the services are built on. Either
// the Postgres repositories or the in-memory stores satisfy every field.
type Stores struct {
	Slots         slotStore
	Appointments  appointmentStore
	Notifications notificationStore
	Reviews       reviewStore
}
