package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryURLs(t *testing.T) {
	c := NewInMemoryCache()

	if c.HasURL("10.0.0.1", "example.com", "/login") {
		t.Errorf("Expected miss on empty cache")
	}
	if c.HasDomain("10.0.0.1", "example.com") {
		t.Errorf("Expected no domain on empty cache")
	}

	c.AddURL("10.0.0.1", "example.com", "/login")

	if !c.HasURL("10.0.0.1", "example.com", "/login") {
		t.Errorf("Expected hit after AddURL")
	}
	if !c.HasDomain("10.0.0.1", "example.com") {
		t.Errorf("Expected domain after AddURL")
	}

	// exact string match only
	if c.HasURL("10.0.0.1", "example.com", "/login?next=/") {
		t.Errorf("Expected miss for different query")
	}
	if c.HasURL("10.0.0.1", "other.com", "/login") {
		t.Errorf("Expected miss for different host")
	}
}

func TestInMemoryClientIsolation(t *testing.T) {
	c := NewInMemoryCache()

	c.AddURL("10.0.0.1", "example.com", "/account")
	c.AddCookie("10.0.0.1", "example.com", "session")

	// state for one client must never be visible to another
	if c.HasURL("10.0.0.2", "example.com", "/account") {
		t.Errorf("URL state leaked between clients")
	}
	if c.HasCookie("10.0.0.2", "example.com", "session") {
		t.Errorf("Cookie state leaked between clients")
	}
	if c.HasDomain("10.0.0.2", "example.com") {
		t.Errorf("Domain state leaked between clients")
	}
}

func TestInMemoryCookies(t *testing.T) {
	c := NewInMemoryCache()

	if c.HasCookie("10.0.0.1", "example.com", "session") {
		t.Errorf("Expected miss on empty cache")
	}

	c.AddCookie("10.0.0.1", "example.com", "session")

	if !c.HasCookie("10.0.0.1", "example.com", "session") {
		t.Errorf("Expected hit after AddCookie")
	}
	if c.HasCookie("10.0.0.1", "example.com", "other") {
		t.Errorf("Expected miss for unknown cookie name")
	}
}

func TestInMemoryConcurrentAccess(t *testing.T) {
	c := NewInMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			client := fmt.Sprintf("10.0.0.%d", n%4)
			for j := 0; j < 100; j++ {
				rel := fmt.Sprintf("/path/%d", j)
				c.AddURL(client, "example.com", rel)
				c.HasURL(client, "example.com", rel)
				c.AddCookie(client, "example.com", "session")
				c.HasCookie(client, "example.com", "session")
			}
		}(i)
	}
	wg.Wait()

	for n := 0; n < 4; n++ {
		client := fmt.Sprintf("10.0.0.%d", n)
		for j := 0; j < 100; j++ {
			if !c.HasURL(client, "example.com", fmt.Sprintf("/path/%d", j)) {
				t.Fatalf("Missing URL for client %s after concurrent writes", client)
			}
		}
	}
}
