// Package mailer sends mail on behalf of a user through the user's own SMTP
// account. The SMTP password is stored encrypted under the user's derived
// mail key; that key only reaches the server inside the sealed secret handed
// out at login, so mail can be sent only while the caller holds it.
package mailer
