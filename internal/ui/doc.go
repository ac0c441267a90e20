// Package ui implements the interactive waiting screen using bubbletea's Elm architecture.
//
// The [Model] shows the authorization URL and a spinner while the loopback listener waits for the browser.
// It moves through three views:
//  1. [WaitingView] : spinner, countdown and the URL to open
//  2. [DeliveredView] : the callback arrived
//  3. [FailedView] : timeout, exhausted attempts or user cancel
//
// The result arrives on the listener's Done channel and is delivered to Update as a [Msg]. A one second tick
// drives the countdown and enforces the deadline. Key bindings (o, q) are shown via charmbracelet/bubbles/help.
package ui
