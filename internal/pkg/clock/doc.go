// Package clock abstracts the time source.
//
// Code that needs "now" should take a Clocker instead of calling time.Now
// directly, so tests can pin the clock to a fixed instant.
package clock
