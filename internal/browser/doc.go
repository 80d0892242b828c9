// Package browser provides the rendering-engine capability orphanscan
// measures pages with.
//
// The scanner only depends on the Driver, Session and Element interfaces:
//
//	Driver.Launch        start a headless browser and open one page
//	Session.SetViewport  resize the page
//	Session.Navigate     load a URL and wait until the network is idle
//	Session.QueryAll     find elements matching a CSS selector
//	Element.Evaluate     run a JavaScript function with the element as this
//	Session.Close        release the browser
//
// RodDriver implements these interfaces with go-rod on top of the Chrome
// DevTools Protocol. Tests substitute an in-memory implementation.
package browser
