package parser

const categoryPage = `<!DOCTYPE html>
<html><body>
<div id="header"><ul><li><a href="/impressum/">Impressum</a></li></ul></div>
<div id="sidebar">
  <ul>
    <li><a href="/kaufland/">Kaufland</a></li>
    <li><a href="lidl/"> Lidl </a></li>
    <li><a href="https://www.prospektmaschine.de/real/">Real</a></li>
    <li><a href="/kaufland-2/">Kaufland</a></li>
    <li><a>Ohne Link</a></li>
    <li><a href="/leer/">   </a></li>
  </ul>
</div>
</body></html>`

const detailPage = `<!DOCTYPE html>
<html><body>
<div class="letaky-grid">
  <div class="brochure-thumb">
    <a href="/kaufland/prospekt-1/"><picture><img src="https://img.example/k1.jpg" data-src="https://img.example/k1-lazy.jpg"></picture></a>
    <div class="letak-description">
      <p class="grid-item-content"><strong>Wochenangebote</strong></p>
      <p class="grid-item-content"><small class="hidden-sm">Mo 01.06.</small><small class="visible-sm">01.06. - 15.06.2024</small></p>
    </div>
  </div>
  <div class="brochure-thumb">
    <picture><img data-src="https://img.example/k2.jpg"></picture>
    <div class="letak-description">
      <p class="grid-item-content">Getränke</p>
      <p class="grid-item-content"><small class="visible-sm">laufend</small></p>
    </div>
  </div>
  <div class="brochure-thumb">
    <picture><img src="https://img.example/k3.jpg"></picture>
  </div>
  <div class="brochure-thumb">
    <div class="letak-description">
      <p class="grid-item-content">Nur Titel</p>
    </div>
  </div>
</div>
</body></html>`
