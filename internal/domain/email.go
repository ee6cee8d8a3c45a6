package domain

// Email is a fully rendered message ready for the mailer.
type Email struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Welcome carries what the first-login e-mail needs. TempPassword lives only for the
// duration of one provisioning call and must never be logged.
type Welcome struct {
	Email        string
	Name         string
	TempPassword string
	LicenseKey   string
	LicenseType  string
	TeamRole     string
}
